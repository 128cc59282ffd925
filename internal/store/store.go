// Package store persists parsed package metadata so repeated requests for
// the same release skip re-downloading and re-parsing upstream assets
// (spec.md §4.10, §6 "Persisted state").
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/ralt/pkgrelay/internal/models"
)

// PackageMetadata is one persisted record: a package filename, when it was
// first parsed, and the serialized parser output (DebianPackage/Package
// JSON) to hydrate a Package's data cell without touching the archive.
type PackageMetadata struct {
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"created_at"`
	Metadata  string    `bson:"metadata"`
}

// Store wraps a Mongo client and exposes one collection per GitHub project.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials Mongo and pings it once so bootstrap fails fast.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, models.Wrap(models.ErrPersistFailed, "mongo connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, models.Wrap(models.ErrPersistFailed, "mongo ping", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection scopes a store to one GitHub project, matching spec.md §4.10's
// "persisted-metadata collection handle scoped to the project".
type Collection struct {
	coll *mongo.Collection
}

// Project returns the collection handle for owner/repo, creating it
// lazily the first time it's written to.
func (s *Store) Project(owner, repo string) *Collection {
	return &Collection{coll: s.db.Collection(fmt.Sprintf("%s_%s", owner, repo))}
}

// Get fetches a persisted record by filename, returning (nil, nil) when
// there is no cached metadata for it yet.
func (c *Collection) Get(ctx context.Context, filename string) (*PackageMetadata, error) {
	var rec PackageMetadata
	err := c.coll.FindOne(ctx, bson.M{"name": filename}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, models.Wrap(models.ErrPersistFailed, filename, err)
	}
	return &rec, nil
}

// Upsert writes or replaces the record for filename.
func (c *Collection) Upsert(ctx context.Context, filename, metadata string) error {
	_, err := c.coll.UpdateOne(ctx,
		bson.M{"name": filename},
		bson.M{
			"$set":         bson.M{"name": filename, "metadata": metadata},
			"$setOnInsert": bson.M{"created_at": time.Now()},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return models.Wrap(models.ErrPersistFailed, filename, err)
	}
	return nil
}

// signingKeyDoc holds the process-wide OpenPGP private key material, keyed
// by a fixed document id, so a restart reuses the same
// identity instead of minting a new one (spec.md §6 "on-disk OpenPGP
// secret-key file" — here stored alongside the rest of the persisted state
// instead of a separate file, since the store is already the durable home
// for everything else the gateway keeps across restarts).
type signingKeyDoc struct {
	ID      string `bson:"_id"`
	Armored []byte `bson:"armored"`
}

// LoadSigningKey returns the persisted armored private key, or nil if none
// has been generated yet.
func (s *Store) LoadSigningKey(ctx context.Context) ([]byte, error) {
	var doc signingKeyDoc
	err := s.db.Collection("signing_keys").FindOne(ctx, bson.M{"_id": "default"}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, models.Wrap(models.ErrPersistFailed, "signing key", err)
	}
	return doc.Armored, nil
}

// SaveSigningKey persists a freshly generated key for future restarts.
func (s *Store) SaveSigningKey(ctx context.Context, armored []byte) error {
	_, err := s.db.Collection("signing_keys").UpdateOne(ctx,
		bson.M{"_id": "default"},
		bson.M{"$set": bson.M{"armored": armored}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return models.Wrap(models.ErrPersistFailed, "signing key", err)
	}
	return nil
}
