package storage

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) GetOrCreateUser(ctx context.Context, id string, atBlock uint64) (*User, error) {
	var u User
	err := s.findOneCurrent(ctx, collUsers, id, &u)
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	u = User{Bitemporal: Bitemporal{ValidFrom: atBlock}, ID: id}
	if _, err := s.coll(collUsers).InsertOne(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) IncUserCounts(ctx context.Context, id string, mints, burns, swaps int64) error {
	return s.incCurrent(ctx, collUsers, id, bson.M{
		"tx_count":   mints + burns + swaps,
		"mint_count": mints,
		"burn_count": burns,
		"swap_count": swaps,
	})
}

// ListUsers backs C10's filterable, cursor-paged user reads.
func (s *Store) ListUsers(ctx context.Context, f ListFilter) ([]User, error) {
	var out []User
	if err := s.listVersioned(ctx, collUsers, f, &out); err != nil {
		return nil, err
	}
	return out, nil
}
