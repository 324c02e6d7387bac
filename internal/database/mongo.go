package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens the process-wide Mongo client and verifies the deployment is
// reachable. The client is safe for concurrent use by all in-flight requests
// and is closed once at shutdown.
func Connect(ctx context.Context, mongoURL string) (*mongo.Client, error) {
	log.Println("Connecting to database...")
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, fmt.Errorf("unable to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Println("Database connection established.")
	return client, nil
}

// MongoStore implements Store on a Mongo database, one collection per entity.
type MongoStore struct {
	db *mongo.Database

	indexOnce sync.Once
	indexErr  error
}

func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	return &MongoStore{db: client.Database(dbName)}
}

// ensureIndexes lazily creates the supporting indexes on first write. Mongo's
// CreateMany is idempotent, so repeat invocations after a failed first attempt
// are harmless.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	s.indexOnce.Do(func() {
		byID := mongo.IndexModel{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}
		bySessionTime := mongo.IndexModel{
			Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
		}

		for collection, models := range map[string][]mongo.IndexModel{
			SessionCollection:     {byID, {Keys: bson.D{{Key: "created_at", Value: 1}}}},
			TranscriptCollection:  {byID, bySessionTime},
			AIResponseCollection:  {byID, bySessionTime},
			StatusCheckCollection: {byID},
		} {
			if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
				s.indexErr = fmt.Errorf("creating indexes for %s: %w", collection, err)
				return
			}
		}
	})
	return s.indexErr
}

func (s *MongoStore) CreateSession(ctx context.Context, userID string) (Session, error) {
	if err := s.ensureIndexes(ctx); err != nil {
		return Session{}, err
	}

	session := Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		IsActive:  true,
		UserID:    strings.TrimSpace(userID),
	}
	if _, err := s.db.Collection(SessionCollection).InsertOne(ctx, session); err != nil {
		return Session{}, fmt.Errorf("inserting session: %w", err)
	}
	return session, nil
}

func (s *MongoStore) GetSession(ctx context.Context, id string) (Session, error) {
	var session Session
	err := s.db.Collection(SessionCollection).FindOne(ctx, bson.M{"id": id}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("fetching session: %w", err)
	}
	return session, nil
}

func (s *MongoStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(clampLimit(limit, MaxSessionList)))
	cursor, err := s.db.Collection(SessionCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	var sessions []Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decoding sessions: %w", err)
	}
	return sessions, nil
}

func (s *MongoStore) AppendTranscript(ctx context.Context, sessionID, text, speaker string, confidence *float64) (TranscriptEntry, error) {
	if err := s.ensureIndexes(ctx); err != nil {
		return TranscriptEntry{}, err
	}
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return TranscriptEntry{}, err
	}

	entry := TranscriptEntry{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Text:       text,
		Timestamp:  time.Now().UTC(),
		Speaker:    speaker,
		Confidence: confidence,
	}
	if _, err := s.db.Collection(TranscriptCollection).InsertOne(ctx, entry); err != nil {
		return TranscriptEntry{}, fmt.Errorf("inserting transcript: %w", err)
	}
	return entry, nil
}

func (s *MongoStore) ListTranscripts(ctx context.Context, sessionID string, limit int) ([]TranscriptEntry, error) {
	return s.findTranscripts(ctx, sessionID, 1, clampLimit(limit, MaxTranscriptList))
}

func (s *MongoStore) RecentTranscripts(ctx context.Context, sessionID string, n int) ([]TranscriptEntry, error) {
	return s.findTranscripts(ctx, sessionID, -1, clampLimit(n, MaxTranscriptList))
}

func (s *MongoStore) findTranscripts(ctx context.Context, sessionID string, order, limit int) ([]TranscriptEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: order}}).
		SetLimit(int64(limit))
	cursor, err := s.db.Collection(TranscriptCollection).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}
	var entries []TranscriptEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decoding transcripts: %w", err)
	}
	return entries, nil
}

func (s *MongoStore) AppendAIResponse(ctx context.Context, sessionID, question, response string) (AIResponse, error) {
	if err := s.ensureIndexes(ctx); err != nil {
		return AIResponse{}, err
	}

	record := AIResponse{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Question:  question,
		Response:  response,
		Timestamp: time.Now().UTC(),
	}
	if _, err := s.db.Collection(AIResponseCollection).InsertOne(ctx, record); err != nil {
		return AIResponse{}, fmt.Errorf("inserting ai response: %w", err)
	}
	return record, nil
}

func (s *MongoStore) ListAIResponses(ctx context.Context, sessionID string, limit int) ([]AIResponse, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(int64(clampLimit(limit, MaxAIResponseList)))
	cursor, err := s.db.Collection(AIResponseCollection).Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing ai responses: %w", err)
	}
	var responses []AIResponse
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, fmt.Errorf("decoding ai responses: %w", err)
	}
	return responses, nil
}

func (s *MongoStore) CreateStatusCheck(ctx context.Context, clientName string) (StatusCheck, error) {
	if err := s.ensureIndexes(ctx); err != nil {
		return StatusCheck{}, err
	}

	check := StatusCheck{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}
	if _, err := s.db.Collection(StatusCheckCollection).InsertOne(ctx, check); err != nil {
		return StatusCheck{}, fmt.Errorf("inserting status check: %w", err)
	}
	return check, nil
}

func (s *MongoStore) ListStatusChecks(ctx context.Context, limit int) ([]StatusCheck, error) {
	opts := options.Find().SetLimit(int64(clampLimit(limit, MaxStatusCheckList)))
	cursor, err := s.db.Collection(StatusCheckCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing status checks: %w", err)
	}
	var checks []StatusCheck
	if err := cursor.All(ctx, &checks); err != nil {
		return nil, fmt.Errorf("decoding status checks: %w", err)
	}
	return checks, nil
}
