package store

import (
	"context"

	"github.com/Ceasar-x/sschool/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaterialQuery lists one owner's materials.
type MaterialQuery struct {
	OwnerID primitive.ObjectID
	Search  string
	Page
}

func (q MaterialQuery) filter() bson.M {
	filter := bson.M{"userId": q.OwnerID}
	if q.Search != "" {
		filter["$or"] = searchFilter(q.Search, "title", "content")
	}
	return filter
}

func (db *DB) InsertMaterial(ctx context.Context, m *models.Material) error {
	now := db.clock()
	m.ID = primitive.NilObjectID
	m.CreatedAt, m.UpdatedAt = now, now
	res, err := db.Materials().InsertOne(ctx, m)
	if err != nil {
		return classify("insert material", err)
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// MaterialByID returns the material with its owner's name and email.
func (db *DB) MaterialByID(ctx context.Context, id primitive.ObjectID) (*models.MaterialView, error) {
	materials, err := db.aggregateMaterials(ctx, pagedPipeline(bson.M{"_id": id}, Page{Limit: 1}, ownerLookup("name", "email")))
	if err != nil {
		return nil, err
	}
	if len(materials) == 0 {
		return nil, ErrNotFound
	}
	return &materials[0], nil
}

func (db *DB) ListMaterials(ctx context.Context, q MaterialQuery) ([]models.MaterialView, int64, error) {
	filter := q.filter()
	materials, err := db.aggregateMaterials(ctx, pagedPipeline(filter, q.Page, ownerLookup("name", "email")))
	if err != nil {
		return nil, 0, err
	}
	total, err := db.Materials().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, classify("count materials", err)
	}
	return materials, total, nil
}

func (db *DB) CountMaterials(ctx context.Context) (int64, error) {
	n, err := db.Materials().CountDocuments(ctx, bson.M{})
	return n, classify("count materials", err)
}

// DeleteMaterial removes a material only if ownerID owns it.
func (db *DB) DeleteMaterial(ctx context.Context, id, ownerID primitive.ObjectID) error {
	res, err := db.Materials().DeleteOne(ctx, bson.M{"_id": id, "userId": ownerID})
	if err != nil {
		return classify("delete material", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMaterialsByOwner removes every material owned by ownerID.
func (db *DB) DeleteMaterialsByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	res, err := db.Materials().DeleteMany(ctx, bson.M{"userId": ownerID})
	if err != nil {
		return 0, classify("delete materials", err)
	}
	return res.DeletedCount, nil
}

func (db *DB) aggregateMaterials(ctx context.Context, pipeline []bson.D) ([]models.MaterialView, error) {
	cur, err := db.Materials().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, classify("aggregate materials", err)
	}
	defer cur.Close(ctx)
	materials := []models.MaterialView{}
	if err := cur.All(ctx, &materials); err != nil {
		return nil, classify("aggregate materials", err)
	}
	return materials, nil
}
