package store

import (
	"context"

	"github.com/Ceasar-x/sschool/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var withoutPassword = bson.M{"password": 0}

// UserQuery filters the admin user listing.
type UserQuery struct {
	Role   models.Role // empty matches every role
	Search string
	Page
}

// UserUpdate holds the fields to $set; nil fields are left untouched.
type UserUpdate struct {
	Name      *string
	Email     *string
	Password  *string // already hashed
	Role      *models.Role
	Course    *string
	StudentID *string
	Semester  *string
	Faculty   *string
}

func (u UserUpdate) set() bson.M {
	set := bson.M{}
	put := func(key string, v *string) {
		if v != nil {
			set[key] = *v
		}
	}
	put("name", u.Name)
	put("email", u.Email)
	put("password", u.Password)
	put("course", u.Course)
	put("studentId", u.StudentID)
	put("semester", u.Semester)
	put("faculty", u.Faculty)
	if u.Role != nil {
		set["role"] = *u.Role
	}
	return set
}

func (q UserQuery) filter() bson.M {
	filter := bson.M{}
	if q.Role != "" {
		filter["role"] = q.Role
	}
	if q.Search != "" {
		filter["$or"] = searchFilter(q.Search, "name", "email", "course", "faculty")
	}
	return filter
}

// CreateUser inserts user and sets its ID and timestamps. A taken email
// yields ErrDuplicateKey.
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	now := db.clock()
	user.ID = primitive.NilObjectID
	user.CreatedAt, user.UpdatedAt = now, now
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	res, err := db.Users().InsertOne(ctx, user)
	if err != nil {
		return classify("create user", err)
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// UserByEmail returns the user including the password digest, for login.
func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := db.Users().FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return nil, classify("user by email", err)
	}
	return &u, nil
}

// UserByID returns the user without the password digest.
func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	opts := options.FindOne().SetProjection(withoutPassword)
	if err := db.Users().FindOne(ctx, bson.M{"_id": id}, opts).Decode(&u); err != nil {
		return nil, classify("user by id", err)
	}
	return &u, nil
}

func (db *DB) ListUsers(ctx context.Context, q UserQuery) ([]models.User, int64, error) {
	filter := q.filter()
	opts := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := db.Users().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, classify("list users", err)
	}
	defer cur.Close(ctx)
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, classify("list users", err)
	}
	total, err := db.Users().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, classify("count users", err)
	}
	return users, total, nil
}

// RecentUsers returns the n most recently created users.
func (db *DB) RecentUsers(ctx context.Context, n int64) ([]models.User, error) {
	opts := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(n)
	cur, err := db.Users().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify("recent users", err)
	}
	defer cur.Close(ctx)
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, classify("recent users", err)
	}
	return users, nil
}

// CountUsers counts users with role, or all users when role is empty.
func (db *DB) CountUsers(ctx context.Context, role models.Role) (int64, error) {
	n, err := db.Users().CountDocuments(ctx, UserQuery{Role: role}.filter())
	return n, classify("count users", err)
}

// UpdateUser applies update and returns the stored user afterwards.
func (db *DB) UpdateUser(ctx context.Context, id primitive.ObjectID, update UserUpdate) (*models.User, error) {
	set := update.set()
	set["updatedAt"] = db.clock()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)
	var u models.User
	err := db.Users().FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		return nil, classify("update user", err)
	}
	return &u, nil
}

func (db *DB) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Users().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return classify("delete user", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
