// Package catalog provides document-store access to the retailer's domain
// data: the product catalog, customer orders, policy/knowledge documents and
// agent profiles. All collections live in MongoDB.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	pderrors "github.com/clearcoat/paintdesk/errors"
)

// Product is one sellable item in the catalog.
type Product struct {
	ID          string  `bson:"_id,omitempty" json:"id"`
	SKU         string  `bson:"sku" json:"sku"`
	Name        string  `bson:"name" json:"name"`
	Description string  `bson:"description" json:"description"`
	Price       float64 `bson:"price" json:"price"`
	ImageURL    string  `bson:"image_url,omitempty" json:"image_url,omitempty"`
	Inventory   int     `bson:"inventory" json:"inventory"`
}

// Order is one customer order document.
type Order struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	CustomerID  string    `bson:"customer_id" json:"customer_id"`
	ProductID   string    `bson:"product_id" json:"product_id"`
	Price       float64   `bson:"price" json:"price"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	Status      string    `bson:"status" json:"status"`
	Description string    `bson:"description" json:"description"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}

// Document is one policy/reference document in the knowledge collection.
type Document struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Topic     string    `bson:"topic" json:"topic"`
	Content   string    `bson:"content" json:"content"`
	Source    string    `bson:"source,omitempty" json:"source,omitempty"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// AgentProfile is the externally configured definition of one agent,
// referenced by its opaque ID.
type AgentProfile struct {
	ID           string  `bson:"_id" json:"id"`
	Instructions string  `bson:"instructions" json:"instructions"`
	Model        string  `bson:"model" json:"model"`
	Temperature  float64 `bson:"temperature" json:"temperature"`
}

// Config holds MongoDB collection configuration for the catalog.
type Config struct {
	Database  string
	Products  string
	Orders    string
	Knowledge string
	Agents    string
}

// DefaultConfig returns default catalog collection names.
func DefaultConfig() *Config {
	return &Config{
		Database:  "paintdesk",
		Products:  "products",
		Orders:    "orders",
		Knowledge: "knowledge",
		Agents:    "agent_profiles",
	}
}

// Store provides access to the catalog collections.
type Store struct {
	client    *mongo.Client
	products  *mongo.Collection
	orders    *mongo.Collection
	knowledge *mongo.Collection
	agents    *mongo.Collection
}

// NewStore creates a catalog store on an existing Mongo client.
func NewStore(client *mongo.Client, config *Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("mongo client cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}

	db := client.Database(config.Database)
	store := &Store{
		client:    client,
		products:  db.Collection(config.Products),
		orders:    db.Collection(config.Orders),
		knowledge: db.Collection(config.Knowledge),
		agents:    db.Collection(config.Agents),
	}

	if err := store.createIndexes(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create catalog indexes: %w", err)
	}
	return store, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sku", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := s.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "customer_id", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := s.knowledge.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "topic", Value: 1}},
	})
	return err
}

// SearchProducts matches query words against product names and descriptions.
func (s *Store) SearchProducts(ctx context.Context, query string, top int) ([]Product, error) {
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, nil
	}
	if top <= 0 {
		top = 10
	}

	clauses := make([]bson.M, 0, len(words)*2)
	for _, w := range words {
		pattern := primitive.Regex{Pattern: regexEscape(w), Options: "i"}
		clauses = append(clauses,
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		)
	}

	cursor, err := s.products.Find(ctx, bson.M{"$or": clauses},
		options.Find().SetSort(bson.M{"name": 1}).SetLimit(int64(top)))
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer cursor.Close(ctx)

	var results []Product
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return results, nil
}

// GetProductBySKU returns the product with the given SKU.
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	var product Product
	err := s.products.FindOne(ctx, bson.M{"sku": sku}).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("product %s: %w", sku, pderrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// ListProducts returns up to top products ordered by name.
func (s *Store) ListProducts(ctx context.Context, top int) ([]Product, error) {
	if top <= 0 {
		top = 50
	}
	cursor, err := s.products.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"name": 1}).SetLimit(int64(top)))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var results []Product
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return results, nil
}

// SearchOrders matches orders by ID, customer ID and/or description. Empty
// arguments are ignored; with no arguments at all it returns recent orders.
func (s *Store) SearchOrders(ctx context.Context, orderID, customerID, description string, top int) ([]Order, error) {
	if top <= 0 {
		top = 5
	}

	filter := bson.M{}
	if orderID != "" {
		filter["_id"] = orderID
	}
	if customerID != "" {
		filter["customer_id"] = customerID
	}
	if description != "" {
		filter["description"] = primitive.Regex{Pattern: regexEscape(description), Options: "i"}
	}

	cursor, err := s.orders.Find(ctx, filter,
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(int64(top)))
	if err != nil {
		return nil, fmt.Errorf("failed to search orders: %w", err)
	}
	defer cursor.Close(ctx)

	var results []Order
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return results, nil
}

// GetOrder returns the order with the given ID.
func (s *Store) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("order %s: %w", id, pderrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// SearchKnowledge matches query against document titles, topics and content.
func (s *Store) SearchKnowledge(ctx context.Context, query string, top int) ([]Document, error) {
	if top <= 0 {
		top = 5
	}

	filter := bson.M{}
	if query != "" {
		pattern := primitive.Regex{Pattern: regexEscape(query), Options: "i"}
		filter["$or"] = []bson.M{
			{"title": pattern},
			{"topic": pattern},
			{"content": pattern},
		}
	}

	cursor, err := s.knowledge.Find(ctx, filter,
		options.Find().SetSort(bson.M{"updated_at": -1}).SetLimit(int64(top)))
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	defer cursor.Close(ctx)

	var results []Document
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return results, nil
}

// GetPolicy returns the most recently updated document for a topic.
func (s *Store) GetPolicy(ctx context.Context, topic string) (*Document, error) {
	var doc Document
	err := s.knowledge.FindOne(ctx,
		bson.M{"topic": primitive.Regex{Pattern: regexEscape(topic), Options: "i"}},
		options.FindOne().SetSort(bson.M{"updated_at": -1})).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("policy %s: %w", topic, pderrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	return &doc, nil
}

// UpsertDocument inserts or replaces a knowledge document by ID.
func (s *Store) UpsertDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if doc.ID == "" {
		doc.ID = primitive.NewObjectID().Hex()
	}
	doc.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	if _, err := s.knowledge.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// AgentProfile returns the agent profile referenced by the given ID.
func (s *Store) AgentProfile(ctx context.Context, id string) (*AgentProfile, error) {
	var profile AgentProfile
	err := s.agents.FindOne(ctx, bson.M{"_id": id}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("agent profile %s: %w", id, pderrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get agent profile: %w", err)
	}
	return &profile, nil
}

// Ping verifies the Mongo connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// regexEscape quotes regex metacharacters so user input matches literally.
func regexEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
