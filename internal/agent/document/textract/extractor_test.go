package textract

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

type fakeAPI struct {
	out   *textract.AnalyzeDocumentOutput
	err   error
	input *textract.AnalyzeDocumentInput
}

func (f *fakeAPI) AnalyzeDocument(_ context.Context, in *textract.AnalyzeDocumentInput, _ ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error) {
	f.input = in
	return f.out, f.err
}

func word(id, text string) types.Block {
	return types.Block{Id: aws.String(id), BlockType: types.BlockTypeWord, Text: aws.String(text)}
}

func line(id, text string, conf float32) types.Block {
	return types.Block{Id: aws.String(id), BlockType: types.BlockTypeLine, Text: aws.String(text), Confidence: aws.Float32(conf)}
}

func children(ids ...string) []types.Relationship {
	return []types.Relationship{{Type: types.RelationshipTypeChild, Ids: ids}}
}

func cell(id string, row, col int32, childIDs ...string) types.Block {
	return types.Block{
		Id: aws.String(id), BlockType: types.BlockTypeCell,
		RowIndex: aws.Int32(row), ColumnIndex: aws.Int32(col),
		Relationships: children(childIDs...),
	}
}

func TestExtractMapsBlocks(t *testing.T) {
	api := &fakeAPI{out: &textract.AnalyzeDocumentOutput{Blocks: []types.Block{
		line("l1", "Invoice 42", 99),
		line("l2", "smudge", 10),
		line("l3", "Total due", 95),
		word("w1", "Item"), word("w2", "Qty"), word("w3", "Pens"), word("w4", "3"),
		{Id: aws.String("t1"), BlockType: types.BlockTypeTable, Relationships: children("c1", "c2", "c3", "c4")},
		cell("c1", 1, 1, "w1"), cell("c2", 1, 2, "w2"), cell("c3", 2, 1, "w3"), cell("c4", 2, 2, "w4"),
		word("w5", "Date:"), word("w6", "2024-01-02"),
		{
			Id: aws.String("k1"), BlockType: types.BlockTypeKeyValueSet, EntityTypes: []types.EntityType{types.EntityTypeKey},
			Relationships: []types.Relationship{
				{Type: types.RelationshipTypeChild, Ids: []string{"w5"}},
				{Type: types.RelationshipTypeValue, Ids: []string{"v1"}},
			},
		},
		{Id: aws.String("v1"), BlockType: types.BlockTypeKeyValueSet, EntityTypes: []types.EntityType{types.EntityTypeValue}, Relationships: children("w6")},
	}}}

	e := NewWithClient(api, &Config{MinConfidence: 80}, logger.NewTestLogger())
	result, err := e.Extract(context.Background(), models.PageImage{Number: 1, Data: []byte("img")})
	require.NoError(t, err)

	assert.Equal(t, []byte("img"), api.input.Document.Bytes)
	assert.Len(t, api.input.FeatureTypes, 2)

	content := result["content"].(map[string]any)
	assert.Equal(t, "Invoice 42\nTotal due", content["full_text"])
	assert.Equal(t, true, content["has_tables"])

	tables := content["tables"].([]any)
	require.Len(t, tables, 1)
	table := tables[0].(map[string]any)
	assert.Equal(t, []any{"Item", "Qty"}, table["headers"])
	assert.Equal(t, []any{[]any{"Pens", "3"}}, table["rows"])

	forms := result["key_values"].([]any)
	require.Len(t, forms, 1)
	assert.Equal(t, map[string]any{"key": "Date:", "value": "2024-01-02"}, forms[0])

	quality := result["confidence_quality"].(map[string]any)
	assert.Equal(t, "high", quality["overall_confidence"])
	assert.Equal(t, Name, result.Metadata()["extractor"])
}

func TestExtractWrapsAPIErrors(t *testing.T) {
	api := &fakeAPI{err: errors.New("throttled")}
	e := NewWithClient(api, &Config{}, logger.NewTestLogger())

	_, err := e.Extract(context.Background(), models.PageImage{Number: 4})
	var extErr *models.ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, 4, extErr.Page)
	assert.Contains(t, err.Error(), "throttled")
}
