// Package textract extracts page content with AWS Textract AnalyzeDocument.
package textract

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/feichai0017/document-analyzer/internal/models"
	"github.com/feichai0017/document-analyzer/pkg/logger"
)

const Name = "textract"

// AnalyzeAPI is the subset of the Textract client used here.
type AnalyzeAPI interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
}

type Config struct {
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	MinConfidence float32
	FeatureTypes  []types.FeatureType
}

type Extractor struct {
	client AnalyzeAPI
	logger logger.Logger
	config *Config
}

// New builds a Textract client. Static credentials are used when given,
// otherwise the default AWS credential chain.
func New(ctx context.Context, cfg *Config, log logger.Logger) (*Extractor, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	client := textract.NewFromConfig(awsCfg, func(o *textract.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg, log), nil
}

func NewWithClient(client AnalyzeAPI, cfg *Config, log logger.Logger) *Extractor {
	if len(cfg.FeatureTypes) == 0 {
		cfg.FeatureTypes = []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms}
	}
	return &Extractor{
		client: client,
		logger: log.Named("textract"),
		config: cfg,
	}
}

func (e *Extractor) Name() string { return Name }

func (e *Extractor) Extract(ctx context.Context, page models.PageImage) (models.Extraction, error) {
	out, err := e.client.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: page.Data},
		FeatureTypes: e.config.FeatureTypes,
	})
	if err != nil {
		return nil, &models.ExtractionError{Page: page.Number, Err: fmt.Errorf("failed to analyze document: %w", err)}
	}

	result := e.buildExtraction(out.Blocks)
	e.logger.Debug("Page analyzed",
		logger.Int("page", page.Number),
		logger.Int("blocks", len(out.Blocks)),
	)
	return result, nil
}

func (e *Extractor) Close() error { return nil }

func (e *Extractor) buildExtraction(blocks []types.Block) models.Extraction {
	index := make(map[string]types.Block, len(blocks))
	for _, b := range blocks {
		if b.Id != nil {
			index[*b.Id] = b
		}
	}

	var lines []string
	var total float32
	var counted int
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeLine || b.Text == nil {
			continue
		}
		conf := aws.ToFloat32(b.Confidence)
		if conf < e.config.MinConfidence {
			continue
		}
		lines = append(lines, *b.Text)
		total += conf
		counted++
	}

	tables := e.processTables(blocks, index)
	forms := e.processForms(blocks, index)

	avg := 0.0
	if counted > 0 {
		avg = float64(total) / float64(counted)
	}

	result := models.Extraction{
		"document_classification": map[string]any{},
		"content": map[string]any{
			"full_text":  strings.Join(lines, "\n"),
			"has_tables": len(tables) > 0,
			"tables":     tables,
		},
		"key_values": forms,
		"confidence_quality": map[string]any{
			"overall_confidence":     confidenceLabel(avg),
			"average_confidence":     avg,
			"requires_manual_review": avg < float64(e.config.MinConfidence),
		},
	}
	result.Metadata()["extractor"] = Name
	return result
}

// processTables returns one {headers, rows} object per TABLE block; the
// first row is taken as the header.
func (e *Extractor) processTables(blocks []types.Block, index map[string]types.Block) []any {
	tables := []any{}
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeTable {
			continue
		}

		var cells []types.Block
		var rows, cols int
		for _, id := range childIDs(b) {
			cell, ok := index[id]
			if !ok || cell.BlockType != types.BlockTypeCell {
				continue
			}
			cells = append(cells, cell)
			rows = max(rows, int(aws.ToInt32(cell.RowIndex)))
			cols = max(cols, int(aws.ToInt32(cell.ColumnIndex)))
		}
		if rows == 0 || cols == 0 {
			continue
		}

		grid := make([][]any, rows)
		for i := range grid {
			grid[i] = make([]any, cols)
			for j := range grid[i] {
				grid[i][j] = ""
			}
		}
		for _, cell := range cells {
			r, c := int(aws.ToInt32(cell.RowIndex))-1, int(aws.ToInt32(cell.ColumnIndex))-1
			if r < 0 || c < 0 {
				continue
			}
			grid[r][c] = childText(cell, index)
		}

		body := make([]any, 0, rows-1)
		for _, row := range grid[1:] {
			body = append(body, row)
		}
		tables = append(tables, map[string]any{
			"headers": grid[0],
			"rows":    body,
		})
	}
	return tables
}

func (e *Extractor) processForms(blocks []types.Block, index map[string]types.Block) []any {
	forms := []any{}
	for _, b := range blocks {
		if b.BlockType != types.BlockTypeKeyValueSet || len(b.EntityTypes) == 0 || b.EntityTypes[0] != types.EntityTypeKey {
			continue
		}
		key := childText(b, index)
		var value string
		for _, rel := range b.Relationships {
			if rel.Type != types.RelationshipTypeValue {
				continue
			}
			for _, id := range rel.Ids {
				if vb, ok := index[id]; ok {
					value = childText(vb, index)
				}
			}
		}
		if key != "" {
			forms = append(forms, map[string]any{"key": key, "value": value})
		}
	}
	return forms
}

func childIDs(b types.Block) []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type == types.RelationshipTypeChild {
			ids = append(ids, rel.Ids...)
		}
	}
	return ids
}

func childText(b types.Block, index map[string]types.Block) string {
	var words []string
	for _, id := range childIDs(b) {
		if child, ok := index[id]; ok && child.Text != nil {
			words = append(words, *child.Text)
		}
	}
	return strings.Join(words, " ")
}

func confidenceLabel(avg float64) string {
	switch {
	case avg >= 90:
		return "high"
	case avg >= 70:
		return "medium"
	default:
		return "low"
	}
}
