// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// TokenKind represents the type of token in a type expression.
type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenIntLiteral
	TokenLess         // <
	TokenGreater      // >
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenComma        // ,
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of type"
	case TokenIdent:
		return "identifier"
	case TokenIntLiteral:
		return "integer"
	case TokenLess:
		return "'<'"
	case TokenGreater:
		return "'>'"
	case TokenLeftBracket:
		return "'['"
	case TokenRightBracket:
		return "']'"
	case TokenComma:
		return "','"
	default:
		return "unknown"
	}
}

// Token is one lexeme of a type expression.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Column int
}

// Lexer tokenizes type expressions such as "row_major float4x4[2]".
type Lexer struct {
	source string
	pos    int
	column int
	start  int
	tokens []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source string) *Lexer {
	return &Lexer{
		source: source,
		column: 1,
		tokens: make([]Token, 0, 8),
	}
}

// Tokenize returns all tokens from the source.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.isAtEnd() {
		l.start = l.pos
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	l.tokens = append(l.tokens, Token{
		Kind:   TokenEOF,
		Column: l.column,
	})
	return l.tokens, nil
}

func (l *Lexer) scanToken() error {
	r := l.advance()

	switch r {
	case '<':
		l.addToken(TokenLess)
	case '>':
		l.addToken(TokenGreater)
	case '[':
		l.addToken(TokenLeftBracket)
	case ']':
		l.addToken(TokenRightBracket)
	case ',':
		l.addToken(TokenComma)
	case ' ', '\t', '\r', '\n':
		// Whitespace separates qualifiers.
	default:
		switch {
		case isDigit(r):
			l.number()
		case isAlpha(r) || r == '_':
			l.identifier()
		default:
			return &SyntaxError{Source: l.source, Column: l.column - 1,
				Message: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	return nil
}

func (l *Lexer) number() {
	for isDigit(l.peek()) {
		l.advance()
	}
	l.addToken(TokenIntLiteral)
}

func (l *Lexer) identifier() {
	for r := l.peek(); isAlphaNumeric(r) || r == '_'; r = l.peek() {
		l.advance()
	}
	l.addToken(TokenIdent)
}

func (l *Lexer) addToken(kind TokenKind) {
	l.tokens = append(l.tokens, Token{
		Kind:   kind,
		Lexeme: l.source[l.start:l.pos],
		Column: l.column - (l.pos - l.start),
	})
}

func (l *Lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.source[l.pos:])
	l.pos += size
	l.column++
	return r
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
	return r
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlpha(r rune) bool {
	return unicode.IsLetter(r)
}

func isAlphaNumeric(r rune) bool {
	return isAlpha(r) || isDigit(r)
}
