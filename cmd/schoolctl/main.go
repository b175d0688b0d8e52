// Command schoolctl drives the SSchool API from a terminal. The session from
// "login" is kept in ~/.sschool/session.json and reused by later commands.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Ceasar-x/sschool/client"
	"github.com/Ceasar-x/sschool/logger"
	"github.com/Ceasar-x/sschool/models"
)

const usage = `usage: schoolctl [-api URL] [-v] <command> [flags]

commands:
  login -email E -password P
  logout
  whoami
  register -name N -email E -password P [-course C -student-id S -semester S -faculty F]
  profile
  profile-update [-name N -course C -student-id S -semester S -faculty F -password P]
  materials [-page N -limit N -search Q]
  material-add -title T -content C
  material-get -id ID
  material-delete -id ID
  books [-page N -limit N -search Q]
  book-get -id ID
  book-cover -id ID
  book-create -name N -author A [-description D]
  book-update -id ID [-name N -author A -description D]
  book-delete -id ID
  book-upload-cover -id ID -file PATH
  books-total
  users [-page N -limit N -search Q -role R]
  user-get -id ID
  user-update -id ID [-name N -email E -password P -course C -student-id S -semester S -faculty F -role R]
  user-delete -id ID
  user-notifications -id ID
  create-admin -name N -email E -password P -course C -faculty F
  stats
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintln(os.Stderr, "error:", apiErr.Message)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("schoolctl", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	apiURL := global.String("api", envOr("SSCHOOL_API", "http://localhost:4000/api"), "API base URL")
	verbose := global.Bool("v", false, "log requests to stderr")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	sessionPath, err := client.DefaultSessionPath()
	if err != nil {
		return err
	}
	c := client.NewClient(*apiURL, nil, &client.FileSessionStore{Path: sessionPath}, logger.Setup(os.Stderr, level))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := &command{name: global.Arg(0), args: global.Args()[1:], out: out, client: c, ctx: ctx}
	return cmd.run()
}

type command struct {
	name   string
	args   []string
	out    io.Writer
	client *client.Client
	ctx    context.Context
}

func (c *command) run() error {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	switch c.name {
	case "login":
		email := fs.String("email", "", "")
		password := fs.String("password", "", "")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		landing, err := c.client.Login(c.ctx, *email, *password)
		if err != nil {
			return err
		}
		s, _ := c.client.Session()
		fmt.Fprintf(c.out, "logged in as %s (%s); landing %s\n", s.User.Email, s.User.Role, landing)
		return nil

	case "logout":
		return c.client.Logout()

	case "whoami":
		s, err := c.client.Session()
		if err != nil {
			return err
		}
		return c.print(s.User)

	case "register", "create-admin":
		var r client.Registration
		fs.StringVar(&r.Name, "name", "", "")
		fs.StringVar(&r.Email, "email", "", "")
		fs.StringVar(&r.Password, "password", "", "")
		fs.StringVar(&r.Course, "course", "", "")
		fs.StringVar(&r.StudentID, "student-id", "", "")
		fs.StringVar(&r.Semester, "semester", "", "")
		fs.StringVar(&r.Faculty, "faculty", "", "")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		if c.name == "create-admin" {
			return c.result(c.client.CreateAdmin(c.ctx, r))
		}
		return c.result(c.client.RegisterStudent(c.ctx, r))

	case "profile":
		return c.result(c.client.Profile(c.ctx))

	case "profile-update":
		var up client.ProfileUpdate
		optional(fs, &up.Name, "name")
		optional(fs, &up.Course, "course")
		optional(fs, &up.StudentID, "student-id")
		optional(fs, &up.Semester, "semester")
		optional(fs, &up.Faculty, "faculty")
		optional(fs, &up.Password, "password")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.UpdateProfile(c.ctx, up))

	case "materials":
		opts := listFlags(fs, false)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.ListMaterials(c.ctx, opts()))

	case "material-add":
		title := fs.String("title", "", "")
		content := fs.String("content", "", "")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.AddMaterial(c.ctx, *title, *content))

	case "material-get":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.GetMaterial(c.ctx, *id))

	case "material-delete":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.done(c.client.DeleteMaterial(c.ctx, *id))

	case "books":
		opts := listFlags(fs, false)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.ListBooks(c.ctx, opts()))

	case "book-get":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.GetBook(c.ctx, *id))

	case "book-cover":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.BookCover(c.ctx, *id))

	case "book-create":
		var in client.BookInput
		fs.StringVar(&in.BookName, "name", "", "")
		fs.StringVar(&in.Author, "author", "", "")
		fs.StringVar(&in.Description, "description", "", "")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.CreateBook(c.ctx, in))

	case "book-update":
		id := idFlag(fs)
		var up client.BookUpdate
		optional(fs, &up.BookName, "name")
		optional(fs, &up.Author, "author")
		optional(fs, &up.Description, "description")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.UpdateBook(c.ctx, *id, up))

	case "book-delete":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.done(c.client.DeleteBook(c.ctx, *id))

	case "book-upload-cover":
		id := idFlag(fs)
		path := fs.String("file", "", "image file")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer f.Close()
		return c.result(c.client.UploadCover(c.ctx, *id, filepath.Base(f.Name()), f))

	case "books-total":
		return c.result(c.client.TotalBooks(c.ctx))

	case "users":
		opts := listFlags(fs, true)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.ListUsers(c.ctx, opts()))

	case "user-get":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.GetUser(c.ctx, *id))

	case "user-update":
		id := idFlag(fs)
		var up client.UserUpdate
		optional(fs, &up.Name, "name")
		optional(fs, &up.Email, "email")
		optional(fs, &up.Password, "password")
		optional(fs, &up.Course, "course")
		optional(fs, &up.StudentID, "student-id")
		optional(fs, &up.Semester, "semester")
		optional(fs, &up.Faculty, "faculty")
		optional(fs, &up.Role, "role")
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.UpdateUser(c.ctx, *id, up))

	case "user-delete":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.done(c.client.DeleteUser(c.ctx, *id))

	case "user-notifications":
		id := idFlag(fs)
		if err := fs.Parse(c.args); err != nil {
			return err
		}
		return c.result(c.client.UserNotifications(c.ctx, *id))

	case "stats":
		return c.result(c.client.DashboardStats(c.ctx))

	default:
		return fmt.Errorf("unknown command %q", c.name)
	}
}

func (c *command) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *command) done(err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, "ok")
	return nil
}

// result prints v as indented JSON unless err is set. It takes the pair
// straight from a client call.
func (c *command) result(v any, err error) error {
	if err != nil {
		return err
	}
	return c.print(v)
}

func idFlag(fs *flag.FlagSet) *string {
	return fs.String("id", "", "record ID")
}

// optional binds a flag that sets *dst only when it is given on the command
// line, so absent flags stay nil in partial updates.
func optional(fs *flag.FlagSet, dst **string, name string) {
	fs.Func(name, "", func(v string) error {
		*dst = &v
		return nil
	})
}

func listFlags(fs *flag.FlagSet, withRole bool) func() client.ListOptions {
	page := fs.Int("page", 0, "page number")
	limit := fs.Int("limit", 0, "page size")
	search := fs.String("search", "", "search term")
	role := new(string)
	if withRole {
		role = fs.String("role", "", "student or admin")
	}
	return func() client.ListOptions {
		return client.ListOptions{Page: *page, Limit: *limit, Search: *search, Role: models.Role(*role)}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
