package infrastructure

import (
	"context"
	"errors"
	"strings"

	"github.com/yourusername/video-dl-api/internal/domain"
)

// All assumptions about yt-dlp's error wording live in this file.

type errorRule struct {
	kind     domain.ErrorKind
	patterns []string
}

// ytdlpErrorRules are matched case-insensitively against yt-dlp's ERROR lines.
// Every matching kind is collected; domain.MoreSpecific picks the winner.
var ytdlpErrorRules = []errorRule{
	{domain.KindPrivate, []string{
		"private video",
		"this video is private",
		"account is private",
		"protected tweet",
		"login required",
		"requires login",
		"login to view",
		"please log in",
		"log in to",
		"sign in to confirm you",
		"use --cookies",
		"authentication",
		"nsfw tweet",
	}},
	{domain.KindGeometryOrAuth, []string{
		"age-restricted",
		"age restricted",
		"confirm your age",
		"inappropriate for some users",
		"geo restrict",
		"geo-restrict",
		"not available in your country",
		"from your location",
	}},
	{domain.KindNotFound, []string{
		"video unavailable",
		"this tweet is unavailable",
		"has been removed",
		"does not exist",
		"not found",
		"http error 404",
		"no video could be found",
		"no video formats found",
		"is not available",
		"has been deleted",
	}},
	{domain.KindUnsupportedSite, []string{
		"unsupported url",
		"no suitable extractor",
	}},
	{domain.KindNetworkError, []string{
		"timed out",
		"timeout",
		"connection reset",
		"connection refused",
		"connection aborted",
		"temporary failure in name resolution",
		"name or service not known",
		"network is unreachable",
		"unable to download webpage",
		"unable to download json",
		"http error 5",
		"http error 429",
		"ssl:",
		"sslerror",
		"certificate verify failed",
		"eof occurred",
	}},
}

// neutralPhrases describe failures that are neither about the source nor the network.
// They are blanked out before matching so their wording cannot trigger a rule.
var neutralPhrases = []string{
	"requested format is not available",
}

// classifyYTDLPError maps a failed yt-dlp run onto the public taxonomy.
// detail is the operator-facing summary extracted from stderr.
func classifyYTDLPError(stderr []byte, runErr error) (domain.ErrorKind, string) {
	if errors.Is(runErr, context.DeadlineExceeded) {
		return domain.KindNetworkError, "yt-dlp timed out"
	}

	detail := ytdlpErrorLines(stderr)
	if detail == "" && runErr != nil {
		detail = runErr.Error()
	}

	return classifyMessage(detail), detail
}

// classifyMessage returns the most specific kind whose rule matches msg
func classifyMessage(msg string) domain.ErrorKind {
	lower := strings.ToLower(msg)
	for _, phrase := range neutralPhrases {
		lower = strings.ReplaceAll(lower, phrase, " ")
	}
	kind := domain.KindUnknown
	for _, rule := range ytdlpErrorRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(lower, pattern) {
				kind = domain.MoreSpecific(kind, rule.kind)
				break
			}
		}
	}
	return kind
}

// ytdlpErrorLines returns yt-dlp's "ERROR:" lines, or the stderr tail when there are none
func ytdlpErrorLines(stderr []byte) string {
	var lines []string
	for _, line := range strings.Split(string(stderr), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			lines = append(lines, strings.TrimSpace(strings.TrimPrefix(line, "ERROR:")))
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "; ")
	}
	return tail(stderr, 500)
}
