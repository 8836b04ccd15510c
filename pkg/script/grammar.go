package script

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// scriptLexer tokenizes bench scripts. Keywords are plain identifiers and
// are matched by value in the grammar.
var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Hex", Pattern: `0[xX][0-9A-Fa-f]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Semi", Pattern: `;`},
})

// File is a parsed script.
type File struct {
	Stmts []*Stmt `( @@ | Semi )*`
}

// Stmt is one script statement.
type Stmt struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Pin     *PinStmt     `  @@`
	Set     *SetStmt     `| @@`
	Get     *GetStmt     `| @@`
	SPIPins *SPIPinsStmt `| @@`
	SPI     *SPIStmt     `| @@`
	CS      *CSStmt      `| @@`
	Write   *WriteStmt   `| @@`
	Read    *ReadStmt    `| @@`
	Xfer    *XferStmt    `| @@`
	Version bool         `| @"version"`
	Date    bool         `| @"date"`
	Serial  bool         `| @"serial"`
}

// PinStmt: pin <name> in|out|release
type PinStmt struct {
	Name string `"pin" @(Ident | Int)`
	Mode string `@("in" | "out" | "release")`
}

// SetStmt: set <name> 0|1
type SetStmt struct {
	Name  string `"set" @(Ident | Int)`
	Value int    `@Int`
}

// GetStmt: get <name>
type GetStmt struct {
	Name string `"get" @(Ident | Int)`
}

// SPIPinsStmt: spi pins <sdo> <sdi> <sck> <cs>
type SPIPinsStmt struct {
	SDO string `"spi" "pins" @(Ident | Int)`
	SDI string `@(Ident | Int)`
	SCK string `@(Ident | Int)`
	CS  string `@(Ident | Int)`
}

// SPIStmt: spi enable|disable
type SPIStmt struct {
	Action string `"spi" @("enable" | "disable")`
}

// CSStmt: cs low|high
type CSStmt struct {
	Level string `"cs" @("low" | "high")`
}

// WriteStmt: write <0xHEX>...
type WriteStmt struct {
	Data []string `"write" @Hex+`
}

// ReadStmt: read <count>
type ReadStmt struct {
	Count int `"read" @Int`
}

// XferStmt: xfer <0xHEX>...
type XferStmt struct {
	Data []string `"xfer" @Hex+`
}

var scriptParser = participle.MustBuild[File](
	participle.Lexer(scriptLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)
