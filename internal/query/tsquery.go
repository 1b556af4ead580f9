package query

import (
	"strings"

	verr "github.com/vellumsearch/vellum/internal/errors"
	"github.com/vellumsearch/vellum/internal/lang"
)

// EmitTsquery builds a store-native lexical query expression from a parsed
// query and a tokenizer configuration name. The result is a SQL expression
// of tsquery type, composed from plainto_tsquery/phraseto_tsquery calls
// joined by && (AND), || (OR), and !! (NOT), with adjacent operands joined
// by an implicit AND.
//
// All token text is escaped before splicing; the configuration name must be
// a known identifier.
func EmitTsquery(p *Parsed, configName string) (string, error) {
	if p == nil || len(p.Tokens) == 0 {
		return "", verr.New(verr.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if !lang.ValidConfigName(configName) {
		return "", verr.Newf(verr.ErrCodeInvalidInput, "invalid tokenizer configuration %q", configName)
	}

	switch p.Kind {
	case KindPlain:
		return plainQuery(configName, p.Tokens[0].Text), nil
	case KindPhrase:
		return phraseQuery(configName, p.Tokens[0].Text), nil
	}

	var (
		parts  []string
		needOp bool
	)

	writeOp := func(op string) {
		parts = append(parts, op)
		needOp = false
	}
	writeLeaf := func(leaf string) {
		if needOp {
			writeOp("&&")
		}
		parts = append(parts, leaf)
		needOp = true
	}

	for _, tok := range p.Tokens {
		switch tok.Type {
		case TokenAnd:
			if !needOp {
				return "", verr.QueryParse("misplaced AND")
			}
			writeOp("&&")
		case TokenOr:
			if !needOp {
				return "", verr.QueryParse("misplaced OR")
			}
			writeOp("||")
		case TokenNot:
			if needOp {
				writeOp("&&")
			}
			writeOp("!!")
		case TokenLParen:
			if needOp {
				writeOp("&&")
			}
			parts = append(parts, "(")
			needOp = false
		case TokenRParen:
			parts = append(parts, ")")
			needOp = true
		case TokenText:
			writeLeaf(plainQuery(configName, tok.Text))
		case TokenPhrase:
			writeLeaf(phraseQuery(configName, tok.Text))
		}
	}

	if !needOp {
		return "", verr.QueryParse("query ends with an operator")
	}
	return joinExpr(parts), nil
}

// joinExpr joins expression parts with single spaces, omitting the space
// after an opening and before a closing parenthesis.
func joinExpr(parts []string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 && p != ")" && parts[i-1] != "(" {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

func plainQuery(config, text string) string {
	return "plainto_tsquery('" + config + "', '" + escapeLiteral(text) + "')"
}

func phraseQuery(config, text string) string {
	return "phraseto_tsquery('" + config + "', '" + escapeLiteral(text) + "')"
}

// escapeLiteral escapes text for inclusion in a single-quoted SQL literal.
// Single quotes are doubled; backslashes are doubled so the literal is safe
// regardless of the server's string-conformance setting.
func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}
