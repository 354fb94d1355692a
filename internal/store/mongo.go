package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/addisrent/addisrent/internal/model"
)

const mongoOpTimeout = 5 * time.Second

// MongoStore implements Store on MongoDB collections.
type MongoStore struct {
	profiles     *mongo.Collection
	wallets      *mongo.Collection
	escrows      *mongo.Collection
	transactions *mongo.Collection
	payments     *mongo.Collection
	reviews      *mongo.Collection
	reports      *mongo.Collection

	client *mongo.Client
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		profiles:     db.Collection("trust_profiles"),
		wallets:      db.Collection("wallets"),
		escrows:      db.Collection("escrows"),
		transactions: db.Collection("transactions"),
		payments:     db.Collection("payments"),
		reviews:      db.Collection("reviews"),
		reports:      db.Collection("review_reports"),
		client:       client,
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.transactions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return err
	}

	_, err = s.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return err
	}

	_, err = s.reviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "target_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "reviewer_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "reviewer_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return err
	}

	_, err = s.reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "review_id", Value: 1}},
	})
	return err
}

// Trust profiles

func (s *MongoStore) GetTrustProfile(ctx context.Context, userID string) (model.TrustProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var p model.TrustProfile
	err := s.profiles.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.TrustProfile{}, ErrNotFound
		}
		return model.TrustProfile{}, err
	}
	return p, nil
}

func (s *MongoStore) UpsertTrustProfile(ctx context.Context, p model.TrustProfile) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := s.profiles.ReplaceOne(ctx, bson.M{"_id": p.UserID}, p, opts)
	return err
}

// Wallets

func (s *MongoStore) GetWallet(ctx context.Context, userID string) (model.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var w model.Wallet
	err := s.wallets.FindOne(ctx, bson.M{"_id": userID}).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Wallet{}, ErrNotFound
		}
		return model.Wallet{}, err
	}
	return w, nil
}

func (s *MongoStore) UpsertWallet(ctx context.Context, w model.Wallet) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := s.wallets.ReplaceOne(ctx, bson.M{"_id": w.UserID}, w, opts)
	return err
}

// Escrows

func (s *MongoStore) GetEscrow(ctx context.Context, bookingID string) (model.Escrow, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var e model.Escrow
	err := s.escrows.FindOne(ctx, bson.M{"_id": bookingID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Escrow{}, ErrNotFound
		}
		return model.Escrow{}, err
	}
	return e, nil
}

func (s *MongoStore) SaveEscrow(ctx context.Context, e model.Escrow) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.escrows.InsertOne(ctx, e)
	return err
}

func (s *MongoStore) TransitionEscrow(ctx context.Context, bookingID string, from, to model.EscrowState, releasedTo model.ReleaseTarget, at time.Time) (model.Escrow, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	// Conditional update on the current state makes the transition a
	// compare-and-swap: the losing writer matches zero documents.
	filter := bson.M{"_id": bookingID, "state": from}
	update := bson.M{"$set": bson.M{
		"state":       to,
		"released_to": releasedTo,
		"released_at": at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var e model.Escrow
	err := s.escrows.FindOneAndUpdate(ctx, filter, update, opts).Decode(&e)
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return model.Escrow{}, err
	}

	// Distinguish a missing escrow from a lost race.
	count, cerr := s.escrows.CountDocuments(ctx, bson.M{"_id": bookingID})
	if cerr != nil {
		return model.Escrow{}, cerr
	}
	if count == 0 {
		return model.Escrow{}, ErrNotFound
	}
	return model.Escrow{}, ErrConflict
}

// Transactions

func (s *MongoStore) SaveTransaction(ctx context.Context, tx model.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.transactions.InsertOne(ctx, tx)
	return err
}

func (s *MongoStore) ListTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.transactions.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var txs []model.Transaction
	if err := cur.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// Payments

func (s *MongoStore) SavePayment(ctx context.Context, p model.Payment) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.payments.InsertOne(ctx, p)
	return err
}

func (s *MongoStore) ListPaymentsByBooking(ctx context.Context, bookingID string) ([]model.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.payments.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var payments []model.Payment
	if err := cur.All(ctx, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// Reviews

func (s *MongoStore) SaveReview(ctx context.Context, r model.Review) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.reviews.InsertOne(ctx, r)
	return err
}

func (s *MongoStore) UpdateReview(ctx context.Context, r model.Review) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.reviews.ReplaceOne(ctx, bson.M{"_id": r.ID}, r)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) GetReview(ctx context.Context, reviewID string) (model.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var r model.Review
	err := s.reviews.FindOne(ctx, bson.M{"_id": reviewID}).Decode(&r)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Review{}, ErrNotFound
		}
		return model.Review{}, err
	}
	return r, nil
}

func (s *MongoStore) DeleteReview(ctx context.Context, reviewID string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.reviews.DeleteOne(ctx, bson.M{"_id": reviewID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListReviewsByTarget(ctx context.Context, targetID string) ([]model.Review, error) {
	return s.listReviews(ctx, bson.M{"target_id": targetID})
}

func (s *MongoStore) ListReviewsByReviewer(ctx context.Context, reviewerID string) ([]model.Review, error) {
	return s.listReviews(ctx, bson.M{"reviewer_id": reviewerID})
}

func (s *MongoStore) listReviews(ctx context.Context, filter bson.M) ([]model.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.reviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reviews []model.Review
	if err := cur.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Reports

func (s *MongoStore) SaveReport(ctx context.Context, rep model.ReviewReport) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := s.reports.InsertOne(ctx, rep)
	return err
}

func (s *MongoStore) GetReport(ctx context.Context, reportID string) (model.ReviewReport, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var rep model.ReviewReport
	err := s.reports.FindOne(ctx, bson.M{"_id": reportID}).Decode(&rep)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.ReviewReport{}, ErrNotFound
		}
		return model.ReviewReport{}, err
	}
	return rep, nil
}

func (s *MongoStore) UpdateReport(ctx context.Context, rep model.ReviewReport) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.reports.ReplaceOne(ctx, bson.M{"_id": rep.ID}, rep)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
