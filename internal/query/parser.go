// Package query parses search queries and emits store-native lexical query
// expressions.
//
// A query is classified as a phrase (entirely quoted), advanced (boolean
// operators or embedded phrases), or plain natural language. Advanced
// queries are tokenized into a flat stream with grouping parentheses; the
// emitter turns the stream into a tsquery expression for the store.
package query

import (
	"strings"
	"unicode/utf8"

	verr "github.com/vellumsearch/vellum/internal/errors"
)

// Kind classifies a parsed query.
type Kind string

const (
	// KindPlain is a natural-language query.
	KindPlain Kind = "plain"
	// KindPhrase is a query entirely enclosed in double quotes.
	KindPhrase Kind = "phrase"
	// KindAdvanced is a query with boolean operators or embedded phrases.
	KindAdvanced Kind = "advanced"
)

// TokenType identifies one token in an advanced query.
type TokenType string

const (
	TokenText   TokenType = "text"
	TokenAnd    TokenType = "AND"
	TokenOr     TokenType = "OR"
	TokenNot    TokenType = "NOT"
	TokenPhrase TokenType = "phrase"
	TokenLParen TokenType = "("
	TokenRParen TokenType = ")"
)

// Token is one element of an advanced query.
type Token struct {
	Type TokenType
	// Text carries the literal for text and phrase tokens.
	Text string
}

// Parsed is the structured representation of a query.
type Parsed struct {
	Kind    Kind
	Raw     string
	Tokens  []Token
	Phrases []string
}

// Limits bound accepted query lengths in runes.
type Limits struct {
	Min int
	Max int
}

// DefaultLimits returns the standard query length bounds.
func DefaultLimits() Limits {
	return Limits{Min: 2, Max: 1000}
}

// Validate rejects blank queries and queries outside the length bounds.
func Validate(raw string, limits Limits) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return verr.New(verr.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	n := utf8.RuneCountInString(trimmed)
	if n < limits.Min {
		return verr.Newf(verr.ErrCodeQueryTooShort, "query must be at least %d characters, got %d", limits.Min, n)
	}
	if n > limits.Max {
		return verr.Newf(verr.ErrCodeQueryTooLong, "query must be at most %d characters, got %d", limits.Max, n)
	}
	return nil
}

// Parse classifies and tokenizes a query. The query is assumed to have
// passed Validate.
func Parse(raw string) (*Parsed, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, verr.New(verr.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	// A query entirely enclosed in one pair of quotes is a phrase.
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		inner := trimmed[1 : len(trimmed)-1]
		if !strings.Contains(inner, `"`) && strings.TrimSpace(inner) != "" {
			return &Parsed{
				Kind:    KindPhrase,
				Raw:     raw,
				Tokens:  []Token{{Type: TokenPhrase, Text: strings.TrimSpace(inner)}},
				Phrases: []string{strings.TrimSpace(inner)},
			}, nil
		}
	}

	if !isAdvanced(trimmed) {
		return &Parsed{
			Kind:   KindPlain,
			Raw:    raw,
			Tokens: []Token{{Type: TokenText, Text: trimmed}},
		}, nil
	}

	tokens, phrases, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	return &Parsed{Kind: KindAdvanced, Raw: raw, Tokens: tokens, Phrases: phrases}, nil
}

// isAdvanced reports whether the query uses boolean operators or embedded
// quoted phrases.
func isAdvanced(trimmed string) bool {
	if strings.Contains(trimmed, `"`) {
		return true
	}
	for _, field := range strings.Fields(trimmed) {
		switch strings.ToUpper(strings.Trim(field, "()")) {
		case "AND", "OR", "NOT":
			return true
		}
	}
	return false
}

// tokenize scans an advanced query into tokens, validating quote and
// parenthesis balance.
func tokenize(s string) ([]Token, []string, error) {
	var (
		tokens  []Token
		phrases []string
		word    strings.Builder
		depth   int
	)

	flushWord := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		word.Reset()
		switch strings.ToUpper(w) {
		case "AND":
			tokens = append(tokens, Token{Type: TokenAnd})
		case "OR":
			tokens = append(tokens, Token{Type: TokenOr})
		case "NOT":
			tokens = append(tokens, Token{Type: TokenNot})
		default:
			tokens = append(tokens, Token{Type: TokenText, Text: w})
		}
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			flushWord()
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == '"' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, nil, verr.QueryParse("unbalanced quotes in query")
			}
			inner := strings.TrimSpace(string(runes[i+1 : end]))
			if inner != "" {
				tokens = append(tokens, Token{Type: TokenPhrase, Text: inner})
				phrases = append(phrases, inner)
			}
			i = end
		case r == '(':
			flushWord()
			tokens = append(tokens, Token{Type: TokenLParen})
			depth++
		case r == ')':
			flushWord()
			depth--
			if depth < 0 {
				return nil, nil, verr.QueryParse("unbalanced parentheses in query")
			}
			tokens = append(tokens, Token{Type: TokenRParen})
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flushWord()
		default:
			word.WriteRune(r)
		}
	}
	flushWord()

	if depth != 0 {
		return nil, nil, verr.QueryParse("unbalanced parentheses in query")
	}
	if len(tokens) == 0 {
		return nil, nil, verr.QueryParse("query contains no terms")
	}
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].Type == TokenLParen && tokens[i+1].Type == TokenRParen {
			return nil, nil, verr.QueryParse("empty group in query")
		}
	}
	return tokens, phrases, nil
}
