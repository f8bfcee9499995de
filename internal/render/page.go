package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"

	"github.com/gagliardetto/solana-go"
)

//go:embed templates/page.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/page.html"))

type AccountRow struct {
	Name     string
	Funds    string
	Address  string
	Explorer string
}

type PageView struct {
	Board         BoardView
	Accounts      []AccountRow
	Phase         string
	LastSignature string
	LastError     string
	Notice        string
	DevEnv        bool
	Presets       []string
}

// Page - writes the whole page.
func Page(w io.Writer, view PageView) error {
	if err := pageTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}

	return nil
}

// FormatSOL - formats lamports as SOL with six decimals.
func FormatSOL(lamports uint64) string {
	return fmt.Sprintf("◎%.6f SOL", float64(lamports)/float64(solana.LAMPORTS_PER_SOL))
}

// ExplorerLink - link to the account on the explorer pointed at a custom cluster.
func ExplorerLink(explorerURL, rpcURL, address string) string {
	return fmt.Sprintf("%s/address/%s/anchor-account?cluster=custom&customUrl=%s",
		explorerURL, address, url.QueryEscape(rpcURL))
}
