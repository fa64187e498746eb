// Package tokens defines the token stream shared by the lexer and the
// parser, and the append-only token log it is persisted in.
package tokens

import "fmt"

// Type identifies the category of a lexed token.
type Type uint16

const (
	TokenEOF Type = iota

	// Literals
	TokenIdent  // identifier; Str holds the spelling
	TokenNumber // integer literal; Str holds the spelling
	TokenString // string literal; Str holds the unquoted spelling
	TokenChar   // character literal; Str holds the spelling

	// Keywords
	TokenInt
	TokenChar_ // "char" keyword, distinct from the literal
	TokenVoid
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenReturn
	TokenBreak
	TokenContinue

	// Delimiters
	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenSemicolon
	TokenComma

	// Operators
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenAssign
	TokenEq
	TokenNe
	TokenLt
	TokenGt
	TokenLe
	TokenGe
	TokenAndAnd
	TokenOrOr
	TokenNot
)

var typeNames = [...]string{
	TokenEOF:       "EOF",
	TokenIdent:     "IDENT",
	TokenNumber:    "NUMBER",
	TokenString:    "STRING",
	TokenChar:      "CHARLIT",
	TokenInt:       "INT",
	TokenChar_:     "CHAR",
	TokenVoid:      "VOID",
	TokenIf:        "IF",
	TokenElse:      "ELSE",
	TokenWhile:     "WHILE",
	TokenFor:       "FOR",
	TokenReturn:    "RETURN",
	TokenBreak:     "BREAK",
	TokenContinue:  "CONTINUE",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenSemicolon: ";",
	TokenComma:     ",",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenPercent:   "%",
	TokenAssign:    "=",
	TokenEq:        "==",
	TokenNe:        "!=",
	TokenLt:        "<",
	TokenGt:        ">",
	TokenLe:        "<=",
	TokenGe:        ">=",
	TokenAndAnd:    "&&",
	TokenOrOr:      "||",
	TokenNot:       "!",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint16(t))
}

// Token is one lexed token. Str is a string-store offset for tokens that
// carry a spelling, 0 otherwise.
type Token struct {
	Type Type
	Line uint32
	Col  uint32
	Str  uint32
}
