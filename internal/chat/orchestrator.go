// Package chat composes extraction, indexing, retrieval and generation into
// the two assistant flows: the company knowledge base chat and the per-content
// document chat.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/midiacode/contentchat/internal/contentspot"
	"github.com/midiacode/contentchat/internal/domain"
	"github.com/midiacode/contentchat/internal/extract"
	"github.com/midiacode/contentchat/internal/generate"
	"github.com/midiacode/contentchat/internal/logger"
	"github.com/midiacode/contentchat/internal/retrieval"
)

// Answer is one completed question/answer exchange with its itemized costs.
// BuildCost is zero whenever the index already existed.
type Answer struct {
	Text       string
	BuildCost  float64
	AnswerCost float64
}

// Total is the exchange's combined cost in USD.
func (a Answer) Total() float64 { return a.BuildCost + a.AnswerCost }

// KnowledgeBase pins the company chat to a fixed namespace and source set.
type KnowledgeBase struct {
	SourceID     string
	PDFPaths     []string
	PageURLs     []string
	AppendFooter bool
}

// Assistant answers questions over lazily built vector indexes. All costs
// flow back to the caller through Answer; the assistant keeps no running
// totals of its own.
type Assistant struct {
	store     domain.IndexStore
	retriever *retrieval.Service
	generator *generate.Generator
	extractor *extract.Extractor
	lookup    *contentspot.Client
	kb        KnowledgeBase
}

func NewAssistant(
	store domain.IndexStore,
	retriever *retrieval.Service,
	generator *generate.Generator,
	extractor *extract.Extractor,
	lookup *contentspot.Client,
	kb KnowledgeBase,
) (*Assistant, error) {
	if store == nil || retriever == nil || generator == nil || extractor == nil {
		return nil, errors.New("chat: store, retriever, generator and extractor are required")
	}
	if kb.SourceID == "" {
		return nil, errors.New("chat: knowledge base source ID is required")
	}
	return &Assistant{
		store:     store,
		retriever: retriever,
		generator: generator,
		extractor: extractor,
		lookup:    lookup,
		kb:        kb,
	}, nil
}

// AnswerFromSource runs the full flow for one namespace: get or create the
// index, retrieve context for the question and generate the answer. When
// retrieval matches nothing the model is still invoked, with a notice in
// place of context, so the user gets a graceful redirect instead of an error.
func (a *Assistant) AnswerFromSource(
	ctx context.Context,
	sourceID, question string,
	supply domain.ChunkSupplier,
	opts generate.Options,
) (Answer, error) {
	log := logger.FromContext(ctx).With("interaction_id", uuid.NewString(), "source_id", sourceID)
	ctx = logger.WithContext(ctx, log)

	index, buildCost, err := a.store.GetOrCreate(ctx, sourceID, supply)
	if err != nil {
		return Answer{}, fmt.Errorf("chat: prepare index %s: %w", sourceID, err)
	}

	customContent, err := a.retriever.Retrieve(ctx, question, index)
	switch {
	case errors.Is(err, domain.ErrNoContext):
		log.Info("no context matched, answering with redirect notice")
		customContent = generate.NoContextNotice
	case err != nil:
		return Answer{BuildCost: buildCost}, err
	}

	text, answerCost, err := a.generator.Answer(ctx, question, customContent, opts)
	if err != nil {
		return Answer{BuildCost: buildCost}, err
	}
	log.Info("question answered",
		"build_cost_usd", buildCost, "answer_cost_usd", answerCost)
	return Answer{Text: text, BuildCost: buildCost, AnswerCost: answerCost}, nil
}

// AnswerKnowledgeBase answers a question against the configured company
// knowledge base with the business prompt.
func (a *Assistant) AnswerKnowledgeBase(ctx context.Context, question string) (Answer, error) {
	return a.AnswerFromSource(ctx, a.kb.SourceID, question,
		a.extractor.Supplier(a.kb.PDFPaths, a.kb.PageURLs),
		generate.Options{
			Variant:      generate.VariantBusiness,
			AppendFooter: a.kb.AppendFooter,
		})
}

// AnswerForCode resolves a short code to its published content and answers
// strictly about that document. The code doubles as the index namespace, so
// each content gets its own index built once on first question.
func (a *Assistant) AnswerForCode(ctx context.Context, code, question string) (Answer, error) {
	if a.lookup == nil {
		return Answer{}, errors.New("chat: content lookup is not configured")
	}
	content, err := a.lookup.Resolve(ctx, code)
	if err != nil {
		return Answer{}, err
	}
	supply := a.supplierFor(content)
	return a.AnswerFromSource(ctx, code, question, supply,
		generate.Options{
			Variant:      generate.VariantDocument,
			ContentTitle: content.Title,
		})
}

// supplierFor picks the extraction path from the content type. Anything that
// is not a PDF is treated as a web page.
func (a *Assistant) supplierFor(content *contentspot.Content) domain.ChunkSupplier {
	source := content.SourceURL
	if source == "" {
		source = content.ShortLink
	}
	if content.ContentTypeSlug == "pdf" {
		return func(ctx context.Context) ([]domain.Chunk, error) {
			return a.extractor.FromPDFURL(ctx, source)
		}
	}
	return a.extractor.Supplier(nil, []string{source})
}
