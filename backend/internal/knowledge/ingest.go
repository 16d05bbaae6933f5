// Package knowledge loads text and web pages into the local knowledge base.
package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fortune-master/backend/internal/constants"
	"fortune-master/backend/internal/graph"
	"fortune-master/backend/internal/tools"
	"fortune-master/backend/pkg/logger"
)

const maxConcurrentFetches = 4

// PassageWriter is the write side of the knowledge base
type PassageWriter interface {
	AddPassage(ctx context.Context, content, source string) (*graph.Passage, error)
}

// Report summarises one ingestion request
type Report struct {
	Passages int               `json:"passages"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Ingestor splits documents into passages and stores them
type Ingestor struct {
	store      PassageWriter
	client     *resty.Client
	chunkRunes int
	logger     *zap.Logger
}

// NewIngestor creates an ingestor writing to store
func NewIngestor(store PassageWriter) *Ingestor {
	return &Ingestor{
		store: store,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(5)).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; fortune-master/1.0)"),
		chunkRunes: constants.KnowledgeChunkRunes,
		logger:     logger.Get(),
	}
}

// IngestTexts stores each text, chunked, with source "text"
func (in *Ingestor) IngestTexts(ctx context.Context, texts []string) (*Report, error) {
	report := &Report{}
	for _, text := range texts {
		n, err := in.save(ctx, text, "text")
		report.Passages += n
		if err != nil {
			return report, err
		}
	}

	in.logger.Info("Texts ingested",
		zap.Int("texts", len(texts)),
		zap.Int("passages", report.Passages),
	)
	return report, nil
}

// IngestURLs fetches each page, extracts its readable text and stores it.
// A page that cannot be fetched is reported in Failed and does not stop the
// others; a store failure aborts the request.
func (in *Ingestor) IngestURLs(ctx context.Context, urls []string) (*Report, error) {
	report := &Report{Failed: make(map[string]string)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, u := range urls {
		u := strings.TrimSpace(u)
		if u == "" {
			continue
		}
		g.Go(func() error {
			text, err := in.fetchText(gctx, u)
			if err != nil {
				in.logger.Warn("Failed to fetch page", zap.String("url", u), zap.Error(err))
				mu.Lock()
				report.Failed[u] = err.Error()
				mu.Unlock()
				return nil
			}

			n, err := in.save(gctx, text, u)
			mu.Lock()
			report.Passages += n
			mu.Unlock()
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	in.logger.Info("Pages ingested",
		zap.Int("urls", len(urls)),
		zap.Int("failed", len(report.Failed)),
		zap.Int("passages", report.Passages),
	)
	return report, nil
}

func (in *Ingestor) fetchText(ctx context.Context, url string) (string, error) {
	resp, err := in.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	text := tools.ExtractText(doc)
	if title := tools.PageTitle(doc); title != "" {
		text = title + "\n" + text
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("page has no readable text")
	}
	return text, nil
}

func (in *Ingestor) save(ctx context.Context, text, source string) (int, error) {
	stored := 0
	for _, chunk := range Chunk(text, in.chunkRunes) {
		if _, err := in.store.AddPassage(ctx, chunk, source); err != nil {
			return stored, fmt.Errorf("failed to store passage from %s: %w", source, err)
		}
		stored++
	}
	return stored, nil
}
