// Package insight turns an analytics snapshot into AI-generated reading:
// three string lists (patterns, strengths, suggestions). The snapshot
// schema is the stable input contract; prompt wording is free to change.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github-insights/internal/model"
)

// Generator wraps a Gemini model configured for JSON output.
type Generator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// aiResponse is the shape we ask the model to return.
type aiResponse struct {
	Patterns    []string `json:"patterns"`
	Strengths   []string `json:"strengths"`
	Suggestions []string `json:"suggestions"`
}

// NewGenerator creates a Generator using the given API key.
func NewGenerator(ctx context.Context, apiKey string) (*Generator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	m := client.GenerativeModel("gemini-2.5-flash-lite")
	// JSON mode lowers the odds of unparseable replies.
	m.ResponseMIMEType = "application/json"

	return &Generator{client: client, model: m}, nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	return g.client.Close()
}

// Generate asks the model to read the snapshot summary and returns the
// three insight lists.
func (g *Generator) Generate(ctx context.Context, snap model.AnalyticsSnapshot) (model.Insights, error) {
	summary, err := json.Marshal(summarize(snap))
	if err != nil {
		return model.Insights{}, err
	}

	prompt := fmt.Sprintf(`You are a senior engineering coach reviewing a developer's commit analytics.

Analytics summary (JSON):
%s

Return strictly JSON with three fields, each an array of 2-4 short strings:
1. "patterns": notable behavioral patterns visible in the data.
2. "strengths": what this developer does well.
3. "suggestions": concrete, actionable improvements.

Return the JSON object only, with no Markdown fencing.`, summary)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return model.Insights{}, fmt.Errorf("generating insights: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return model.Insights{}, fmt.Errorf("empty response from model")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return model.Insights{}, fmt.Errorf("unexpected response part type %T", resp.Candidates[0].Content.Parts[0])
	}

	parsed, err := parseResponse(string(text))
	if err != nil {
		return model.Insights{}, err
	}

	return model.Insights{
		Patterns:    parsed.Patterns,
		Strengths:   parsed.Strengths,
		Suggestions: parsed.Suggestions,
		GeneratedAt: time.Now(),
	}, nil
}

// parseResponse extracts the JSON object from the raw model output. Even
// in JSON mode the model occasionally wraps its answer in fencing, so the
// braces are located explicitly instead of trusting the whole string.
func parseResponse(raw string) (aiResponse, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return aiResponse{}, fmt.Errorf("no JSON object in model output: %q", raw)
	}

	var res aiResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return aiResponse{}, fmt.Errorf("decoding model output: %w", err)
	}
	return res, nil
}

// summarize reduces the snapshot to the fields worth prompting with.
// Histograms are collapsed to their peaks so the prompt stays compact.
type snapshotSummary struct {
	TotalCommits  int                  `json:"total_commits"`
	TotalRepos    int                  `json:"total_repos"`
	CurrentStreak int                  `json:"current_streak"`
	LongestStreak int                  `json:"longest_streak"`
	ActiveDays    int                  `json:"active_days"`
	PeakHourUTC   int                  `json:"peak_hour_utc"`
	TopLanguages  []model.LanguageStat `json:"top_languages"`
	Impact        model.ImpactStats    `json:"impact"`
	Quality       model.QualityStats   `json:"quality"`
	Persona       model.Persona        `json:"persona"`
}

func summarize(snap model.AnalyticsSnapshot) snapshotSummary {
	peak := 0
	for h, n := range snap.CommitsByHour {
		if n > snap.CommitsByHour[peak] {
			peak = h
		}
	}

	langs := snap.Languages
	if len(langs) > 5 {
		langs = langs[:5]
	}

	return snapshotSummary{
		TotalCommits:  snap.TotalCommits,
		TotalRepos:    snap.TotalRepos,
		CurrentStreak: snap.CurrentStreak,
		LongestStreak: snap.LongestStreak,
		ActiveDays:    snap.ActiveDays,
		PeakHourUTC:   peak,
		TopLanguages:  langs,
		Impact:        snap.Impact,
		Quality:       snap.Quality,
		Persona:       snap.Persona,
	}
}
