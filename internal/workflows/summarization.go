// Package workflows holds the built-in steps shipped with the engine.
//
// The summarization steps are rule-based: they shorten text by keeping
// leading words. Each step reads its tuning parameters from the state, so a
// caller can override them per run.
package workflows

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/RealZimboGuy/graphflow/pkg/graphflow/core"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/domain"
	"github.com/RealZimboGuy/graphflow/pkg/graphflow/models"
)

const (
	StepDecidePipeline    = "decide_pipeline"
	StepSinglePassSummary = "single_pass_summary"
	StepSplitText         = "split_text"
	StepGenerateSummaries = "generate_summaries"
	StepMergeSummaries    = "merge_summaries"
	StepRefineSummary     = "refine_summary"
	StepCheckLength       = "check_length"
)

// State keys read and written by the summarization steps.
const (
	KeyOriginalText      = "original_text"
	KeyFinalSummary      = "final_summary"
	KeyChunks            = "chunks"
	KeyChunkSummaries    = "chunk_summaries"
	KeyIteration         = "iteration"
	KeyMaxLength         = "max_length"
	KeyShortThreshold    = "short_threshold"
	KeySinglePassWords   = "single_pass_words"
	KeyChunkSize         = "chunk_size"
	KeyChunkSummaryWords = "chunk_summary_words"
	KeyDefaultMaxLength  = "default_max_length"
	KeyRefineFactor      = "refine_factor"
)

const (
	defaultShortThreshold    = 100
	defaultSinglePassWords   = 80
	defaultChunkSize         = 100
	defaultChunkSummaryWords = 30
	defaultMaxLength         = 150
	defaultRefineFactor      = 0.7
)

const (
	PipelineShort = "short"
	PipelineLong  = "long"
)

// Register adds every summarization step to reg.
func Register(reg *core.Registry) error {
	steps := map[string]core.StepFunc{
		StepDecidePipeline:    DecidePipeline,
		StepSinglePassSummary: SinglePassSummary,
		StepSplitText:         SplitText,
		StepGenerateSummaries: GenerateSummaries,
		StepMergeSummaries:    MergeSummaries,
		StepRefineSummary:     RefineSummary,
		StepCheckLength:       CheckLength,
	}
	for name, fn := range steps {
		if err := reg.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// SummarizeGraph returns the canonical summarization graph. Short texts take a
// single pass, long ones are chunked and merged; both end in the
// refine/check loop until the summary fits max_length.
func SummarizeGraph() models.CreateGraphRequest {
	return models.CreateGraphRequest{
		Name:      "summarize",
		EntryNode: StepDecidePipeline,
		Nodes: []string{
			StepDecidePipeline,
			StepSinglePassSummary,
			StepSplitText,
			StepGenerateSummaries,
			StepMergeSummaries,
			StepRefineSummary,
			StepCheckLength,
		},
		Edges: map[string]domain.Target{
			StepSinglePassSummary: StepCheckLength,
			StepSplitText:         StepGenerateSummaries,
			StepGenerateSummaries: StepMergeSummaries,
			StepMergeSummaries:    StepRefineSummary,
			StepRefineSummary:     StepCheckLength,
		},
		ConditionalEdges: map[string]map[string]domain.Target{
			StepDecidePipeline: {
				PipelineShort: StepSinglePassSummary,
				PipelineLong:  StepSplitText,
			},
			StepCheckLength: {
				"true":  StepRefineSummary,
				"false": domain.Terminal,
			},
		},
	}
}

func words(text string) []string {
	return strings.Fields(text)
}

// maxLength returns the max_length parameter when it is set to an integer.
func maxLength(state core.State) (int, bool) {
	v, ok := state.Get(KeyMaxLength)
	if !ok || v.IsNull() {
		return 0, false
	}
	return v.AsInt()
}

func positiveParam(state core.State, key string, def int) (int, error) {
	n := state.GetInt(key, def)
	if n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %d", key, n)
	}
	return n, nil
}

func ensureIteration(state core.State) {
	if !state.Has(KeyIteration) {
		state.Set(KeyIteration, core.IntValue(0))
	}
}

func DecidePipeline(_ context.Context, state core.State) (core.State, error) {
	threshold := state.GetInt(KeyShortThreshold, defaultShortThreshold)
	decision := PipelineLong
	if len(words(state.GetString(KeyOriginalText, ""))) <= threshold {
		decision = PipelineShort
	}
	state.Set(StepDecidePipeline, core.StringValue(decision))
	return state, nil
}

func SinglePassSummary(_ context.Context, state core.State) (core.State, error) {
	keep := state.GetInt(KeySinglePassWords, defaultSinglePassWords)
	if limit, ok := maxLength(state); ok && limit < keep {
		keep = limit
	}
	keep = max(keep, 0)
	w := words(state.GetString(KeyOriginalText, ""))
	state.Set(KeyFinalSummary, core.StringValue(strings.Join(w[:min(keep, len(w))], " ")))
	ensureIteration(state)
	return state, nil
}

func SplitText(_ context.Context, state core.State) (core.State, error) {
	size, err := positiveParam(state, KeyChunkSize, defaultChunkSize)
	if err != nil {
		return nil, err
	}
	w := words(state.GetString(KeyOriginalText, ""))
	chunks := make([]string, 0, (len(w)+size-1)/size)
	for i := 0; i < len(w); i += size {
		chunks = append(chunks, strings.Join(w[i:min(i+size, len(w))], " "))
	}
	state.Set(KeyChunks, core.StringsValue(chunks))
	return state, nil
}

func GenerateSummaries(_ context.Context, state core.State) (core.State, error) {
	keep := max(state.GetInt(KeyChunkSummaryWords, defaultChunkSummaryWords), 0)
	chunks := state.GetStrings(KeyChunks)
	summaries := make([]string, 0, len(chunks))
	for _, c := range chunks {
		w := words(c)
		summaries = append(summaries, strings.Join(w[:min(keep, len(w))], " "))
	}
	state.Set(KeyChunkSummaries, core.StringsValue(summaries))
	return state, nil
}

func MergeSummaries(_ context.Context, state core.State) (core.State, error) {
	parts := make([]string, 0)
	for _, s := range state.GetStrings(KeyChunkSummaries) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	state.Set(KeyFinalSummary, core.StringValue(strings.Join(parts, " ")))
	return state, nil
}

// RefineSummary shrinks final_summary toward max_length. Every call that
// trims removes at least one word and never goes below the target, so the
// refine/check loop converges.
func RefineSummary(_ context.Context, state core.State) (core.State, error) {
	w := words(state.GetString(KeyFinalSummary, ""))
	limit, ok := maxLength(state)
	if !ok {
		limit = state.GetInt(KeyDefaultMaxLength, defaultMaxLength)
	}
	if len(w) == 0 || len(w) <= limit {
		ensureIteration(state)
		return state, nil
	}

	factor := state.GetFloat(KeyRefineFactor, defaultRefineFactor)
	newLen := max(int(math.Floor(float64(len(w))*factor)), limit)
	if newLen >= len(w) {
		newLen = max(len(w)-1, limit)
	}
	newLen = max(newLen, 0)
	state.Set(KeyFinalSummary, core.StringValue(strings.Join(w[:newLen], " ")))
	state.Set(KeyIteration, core.IntValue(state.GetInt(KeyIteration, 0)+1))
	return state, nil
}

func CheckLength(_ context.Context, state core.State) (core.State, error) {
	limit, ok := maxLength(state)
	tooLong := ok && len(words(state.GetString(KeyFinalSummary, ""))) > limit
	state.Set(StepCheckLength, core.BoolValue(tooLong))
	return state, nil
}
