package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"studysync/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// EmailIndex is the GSI on Users.email
const EmailIndex = "email-index"

// DynamoAPI is the subset of *dynamodb.Client used by DynamoStore.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// NewDynamoDBClient loads the default AWS config for region. A non-empty endpoint
// points the client at DynamoDB Local.
func NewDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// DynamoStore is a Store on DynamoDB. Ids come from atomic counters in the Counters table.
//
// Tables (all names carry the configured prefix):
//
//	Users          pk id (N), GSI email-index on email (S)
//	Matches        pk id (N)
//	Messages       pk matchId (N), sk id (N)
//	StudySessions  pk id (N)
//	Counters       pk name (S), attribute value (N)
type DynamoStore struct {
	Client DynamoAPI
	Prefix string
	log    zerolog.Logger
}

// NewDynamoStore wraps a DynamoDB client.
func NewDynamoStore(client DynamoAPI, prefix string, log zerolog.Logger) *DynamoStore {
	return &DynamoStore{Client: client, Prefix: prefix, log: log.With().Str("component", "dynamo").Logger()}
}

func (ds *DynamoStore) table(name string) string {
	return ds.Prefix + name
}

func numberKey(name string, id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

func numberValue(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

// NextID atomically increments the counter for table and returns the new value.
func (ds *DynamoStore) NextID(ctx context.Context, table string) (int64, error) {
	out, err := ds.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(ds.table(models.CountersTable)),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: table},
		},
		UpdateExpression:          aws.String("ADD #v :one"),
		ExpressionAttributeNames:  map[string]string{"#v": "value"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": numberValue(1)},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate id for '%s': %w", table, err)
	}
	attr, ok := out.Attributes["value"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("counter for '%s' returned no value", table)
	}
	return strconv.ParseInt(attr.Value, 10, 64)
}

// putItem marshals item and writes it. condition is optional.
func (ds *DynamoStore) putItem(ctx context.Context, table string, item interface{}, condition string) error {
	marshaled, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	in := &dynamodb.PutItemInput{
		TableName: aws.String(ds.table(table)),
		Item:      marshaled,
	}
	if condition != "" {
		in.ConditionExpression = aws.String(condition)
	}
	if _, err := ds.Client.PutItem(ctx, in); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConflict
		}
		return fmt.Errorf("failed to put item in table '%s': %w", table, err)
	}
	ds.log.Debug().Str("table", table).Msg("✅ Item written")
	return nil
}

// getItem reads one item into out, returning ErrNotFound when absent.
func (ds *DynamoStore) getItem(ctx context.Context, table string, key map[string]types.AttributeValue, out interface{}) error {
	res, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ds.table(table)),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("failed to get item from table '%s': %w", table, err)
	}
	if res.Item == nil {
		return ErrNotFound
	}
	return attributevalue.UnmarshalMap(res.Item, out)
}

// query runs every page of a query and unmarshals the items into out.
func (ds *DynamoStore) query(ctx context.Context, in *dynamodb.QueryInput, out interface{}) error {
	var items []map[string]types.AttributeValue
	p := dynamodb.NewQueryPaginator(ds.Client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to query table '%s': %w", aws.ToString(in.TableName), err)
		}
		items = append(items, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(items, out)
}

// scan runs a filtered scan over every page and unmarshals the items into out.
func (ds *DynamoStore) scan(ctx context.Context, table, filter string, values map[string]types.AttributeValue, out interface{}) error {
	in := &dynamodb.ScanInput{TableName: aws.String(ds.table(table))}
	if filter != "" {
		in.FilterExpression = aws.String(filter)
		in.ExpressionAttributeValues = values
	}
	var items []map[string]types.AttributeValue
	p := dynamodb.NewScanPaginator(ds.Client, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to scan table '%s': %w", table, err)
		}
		items = append(items, page.Items...)
	}
	return attributevalue.UnmarshalListOfMaps(items, out)
}

func (ds *DynamoStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, err := ds.GetUserByEmail(ctx, u.Email); err == nil {
		return fmt.Errorf("create user %s: %w", u.Email, ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	id, err := ds.NextID(ctx, models.UsersTable)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.ID, u.CreatedAt, u.UpdatedAt = id, now, now
	if err := ds.putItem(ctx, models.UsersTable, u, "attribute_not_exists(id)"); err != nil {
		return fmt.Errorf("create user %s: %w", u.Email, err)
	}
	return nil
}

func (ds *DynamoStore) UpdateUser(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	return ds.putItem(ctx, models.UsersTable, u, "")
}

func (ds *DynamoStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := ds.getItem(ctx, models.UsersTable, numberKey("id", id), &u); err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (ds *DynamoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var users []models.User
	err := ds.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(ds.table(models.UsersTable)),
		IndexName:              aws.String(EmailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	}, &users)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("get user %s: %w", email, ErrNotFound)
	}
	return &users[0], nil
}

func (ds *DynamoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := ds.scan(ctx, models.UsersTable, "", nil, &users); err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (ds *DynamoStore) CreateMatch(ctx context.Context, m *models.Match) error {
	id, err := ds.NextID(ctx, models.MatchesTable)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	m.ID, m.CreatedAt, m.UpdatedAt = id, now, now
	return ds.putItem(ctx, models.MatchesTable, m, "attribute_not_exists(id)")
}

func (ds *DynamoStore) UpdateMatch(ctx context.Context, m *models.Match) error {
	m.UpdatedAt = time.Now().UTC()
	return ds.putItem(ctx, models.MatchesTable, m, "")
}

func (ds *DynamoStore) GetMatch(ctx context.Context, id int64) (*models.Match, error) {
	var m models.Match
	if err := ds.getItem(ctx, models.MatchesTable, numberKey("id", id), &m); err != nil {
		return nil, fmt.Errorf("get match %d: %w", id, err)
	}
	return &m, nil
}

func (ds *DynamoStore) FindMatchBetween(ctx context.Context, userA, userB int64) (*models.Match, error) {
	var matches []models.Match
	err := ds.scan(ctx, models.MatchesTable,
		"(user1Id = :a AND user2Id = :b) OR (user1Id = :b AND user2Id = :a)",
		map[string]types.AttributeValue{":a": numberValue(userA), ":b": numberValue(userB)},
		&matches)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("find match %d/%d: %w", userA, userB, ErrNotFound)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return &matches[0], nil
}

func (ds *DynamoStore) ListMatchesForUser(ctx context.Context, userID int64) ([]models.Match, error) {
	var matches []models.Match
	err := ds.scan(ctx, models.MatchesTable, "user1Id = :u OR user2Id = :u",
		map[string]types.AttributeValue{":u": numberValue(userID)}, &matches)
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (ds *DynamoStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	id, err := ds.NextID(ctx, models.MessagesTable)
	if err != nil {
		return err
	}
	msg.ID = id
	return ds.putItem(ctx, models.MessagesTable, msg, "attribute_not_exists(id)")
}

func (ds *DynamoStore) ListMessages(ctx context.Context, matchID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := ds.query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(ds.table(models.MessagesTable)),
		KeyConditionExpression:    aws.String("matchId = :m"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":m": numberValue(matchID)},
		ScanIndexForward:          aws.Bool(true),
	}, &msgs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Before(&msgs[j]) })
	return msgs, nil
}

func (ds *DynamoStore) LastMessage(ctx context.Context, matchID int64) (*models.Message, error) {
	msgs, err := ds.ListMessages(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("last message for match %d: %w", matchID, ErrNotFound)
	}
	return &msgs[len(msgs)-1], nil
}

func (ds *DynamoStore) FindMessageByClientID(ctx context.Context, matchID int64, clientMessageID string) (*models.Message, error) {
	var msgs []models.Message
	err := ds.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(ds.table(models.MessagesTable)),
		KeyConditionExpression: aws.String("matchId = :m"),
		FilterExpression:       aws.String("clientMessageId = :c"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": numberValue(matchID),
			":c": &types.AttributeValueMemberS{Value: clientMessageID},
		},
	}, &msgs)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("find message %s: %w", clientMessageID, ErrNotFound)
	}
	return &msgs[0], nil
}

func (ds *DynamoStore) CreateStudySession(ctx context.Context, s *models.StudySession) error {
	id, err := ds.NextID(ctx, models.StudySessionsTable)
	if err != nil {
		return err
	}
	s.ID = id
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return ds.putItem(ctx, models.StudySessionsTable, s, "attribute_not_exists(id)")
}

func (ds *DynamoStore) UpdateStudySession(ctx context.Context, s *models.StudySession) error {
	return ds.putItem(ctx, models.StudySessionsTable, s, "")
}

func (ds *DynamoStore) GetStudySession(ctx context.Context, id int64) (*models.StudySession, error) {
	var s models.StudySession
	if err := ds.getItem(ctx, models.StudySessionsTable, numberKey("id", id), &s); err != nil {
		return nil, fmt.Errorf("get study session %d: %w", id, err)
	}
	return &s, nil
}

func (ds *DynamoStore) ListStudySessionsForUser(ctx context.Context, userID int64) ([]models.StudySession, error) {
	var sessions []models.StudySession
	err := ds.scan(ctx, models.StudySessionsTable, "contains(participantIds, :u)",
		map[string]types.AttributeValue{":u": numberValue(userID)}, &sessions)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
	return sessions, nil
}

func (ds *DynamoStore) Close() error { return nil }
