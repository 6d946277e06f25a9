package registry

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// CardType describes a card the dashboard editor can offer.
type CardType struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Preview     bool   `json:"preview"`
	Version     string `json:"version"`
}

var (
	mu    sync.RWMutex
	types = make(map[string]CardType)
)

// Register adds a card type. Registering the same type twice replaces the
// earlier entry.
func Register(ct CardType) {
	mu.Lock()
	types[ct.Type] = ct
	mu.Unlock()
}

// Lookup returns the registered card type.
func Lookup(typ string) (CardType, bool) {
	mu.RLock()
	defer mu.RUnlock()
	ct, ok := types[typ]
	return ct, ok
}

// List returns all registered card types ordered by type.
func List() []CardType {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]CardType, 0, len(types))
	for _, ct := range types {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

var (
	bannerName = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFA500")).
			Background(lipgloss.Color("#000000"))
	bannerVersion = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#696969"))
)

// Banner returns the version banner for a card type.
func Banner(ct CardType) string {
	return bannerName.Render(fmt.Sprintf("  %s  ", strings.ToUpper(ct.Type))) + "\n" +
		bannerVersion.Render(fmt.Sprintf("  Version %s  ", ct.Version))
}

// PrintBanners writes the banner of every registered card type to w.
func PrintBanners(w io.Writer) {
	for _, ct := range List() {
		fmt.Fprintln(w, Banner(ct))
	}
}
