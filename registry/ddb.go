package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DDBClient is the slice of the DynamoDB API the registry needs; narrowing
// it keeps the backend fakeable in tests.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBRegistry implements Registry on DynamoDB. Conditional writes give the
// compare-and-swap semantics object stores lack, so multiple publishers can
// race on the same name without losing versions.
//
// Table schema:
//   - Partition key: name (string)
//   - Sort key: seq (number)
//
// Create with:
//
//	aws dynamodb create-table \
//	  --table-name squant-registry \
//	  --attribute-definitions AttributeName=name,AttributeType=S AttributeName=seq,AttributeType=N \
//	  --key-schema AttributeName=name,KeyType=HASH AttributeName=seq,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBRegistry struct {
	client    DDBClient
	tableName string
}

var _ Registry = (*DDBRegistry)(nil)

// NewDDBRegistry creates a registry backed by the given DynamoDB table.
func NewDDBRegistry(client DDBClient, tableName string) *DDBRegistry {
	return &DDBRegistry{client: client, tableName: tableName}
}

// Publish appends the next version for name with a conditional write.
// Returns ErrConflict if another publisher claimed the version first.
func (r *DDBRegistry) Publish(ctx context.Context, name, ref string) (Version, error) {
	latest, err := r.latestSeq(ctx, name)
	if err != nil {
		return Version{}, err
	}

	v := Version{
		ID:        uuid.NewString(),
		Name:      name,
		Seq:       latest + 1,
		Ref:       ref,
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      itemFromVersion(v),
		// The composite key must not exist yet; a racing publisher that won
		// the same seq trips this condition.
		ConditionExpression: aws.String("attribute_not_exists(#n) AND attribute_not_exists(seq)"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
		},
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return Version{}, ErrConflict
		}
		return Version{}, fmt.Errorf("publish %s: %w", name, err)
	}
	return v, nil
}

// Latest returns the newest version for name.
func (r *DDBRegistry) Latest(ctx context.Context, name string) (Version, error) {
	resp, err := r.query(ctx, name, false, 1)
	if err != nil {
		return Version{}, err
	}
	if len(resp.Items) == 0 {
		return Version{}, ErrNotFound
	}
	return versionFromItem(resp.Items[0])
}

// Versions returns all versions for name, oldest first.
func (r *DDBRegistry) Versions(ctx context.Context, name string) ([]Version, error) {
	resp, err := r.query(ctx, name, true, 0)
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, ErrNotFound
	}
	out := make([]Version, 0, len(resp.Items))
	for _, item := range resp.Items {
		v, err := versionFromItem(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *DDBRegistry) latestSeq(ctx context.Context, name string) (uint64, error) {
	resp, err := r.query(ctx, name, false, 1)
	if err != nil {
		return 0, err
	}
	if len(resp.Items) == 0 {
		return 0, nil
	}
	v, err := versionFromItem(resp.Items[0])
	if err != nil {
		return 0, err
	}
	return v.Seq, nil
}

func (r *DDBRegistry) query(ctx context.Context, name string, asc bool, limit int32) (*dynamodb.QueryOutput, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("#n = :name"),
		ExpressionAttributeNames: map[string]string{
			"#n": "name",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":name": &types.AttributeValueMemberS{Value: name},
		},
		ScanIndexForward: aws.Bool(asc),
	}
	if limit > 0 {
		in.Limit = aws.Int32(limit)
	}
	resp, err := r.client.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return resp, nil
}

func itemFromVersion(v Version) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"name":       &types.AttributeValueMemberS{Value: v.Name},
		"seq":        &types.AttributeValueMemberN{Value: strconv.FormatUint(v.Seq, 10)},
		"id":         &types.AttributeValueMemberS{Value: v.ID},
		"ref":        &types.AttributeValueMemberS{Value: v.Ref},
		"created_at": &types.AttributeValueMemberS{Value: v.CreatedAt.Format(time.RFC3339Nano)},
	}
}

func versionFromItem(item map[string]types.AttributeValue) (Version, error) {
	var v Version
	name, ok := item["name"].(*types.AttributeValueMemberS)
	if !ok {
		return v, errors.New("invalid name attribute")
	}
	seqAttr, ok := item["seq"].(*types.AttributeValueMemberN)
	if !ok {
		return v, errors.New("invalid seq attribute")
	}
	seq, err := strconv.ParseUint(seqAttr.Value, 10, 64)
	if err != nil {
		return v, fmt.Errorf("parse seq: %w", err)
	}
	v.Name = name.Value
	v.Seq = seq
	if id, ok := item["id"].(*types.AttributeValueMemberS); ok {
		v.ID = id.Value
	}
	if ref, ok := item["ref"].(*types.AttributeValueMemberS); ok {
		v.Ref = ref.Value
	}
	if created, ok := item["created_at"].(*types.AttributeValueMemberS); ok {
		if t, err := time.Parse(time.RFC3339Nano, created.Value); err == nil {
			v.CreatedAt = t
		}
	}
	return v, nil
}
