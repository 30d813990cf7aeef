package debug

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category gates one group of diagnostic output.
type Category string

const (
	Research Category = "research"
	Tools    Category = "tools"
	Prompt   Category = "prompt"
)

var (
	once    sync.Once
	enabled map[Category]bool
	dumpDir string
)

func load() {
	enabled = make(map[Category]bool)
	all := os.Getenv("ARGO_DEBUG_ALL") != ""
	if all || os.Getenv("ARGO_DEBUG_RESEARCH") != "" {
		enabled[Research] = true
	}
	if all || os.Getenv("ARGO_DEBUG_TOOLS") != "" {
		enabled[Tools] = true
	}
	if os.Getenv("ARGO_DEBUG_PROMPT") != "" {
		enabled[Prompt] = true
		dumpDir = os.Getenv("ARGO_DEBUG_PROMPT")
		if dumpDir == "1" || dumpDir == "true" {
			dumpDir = os.TempDir()
		}
	}
}

// Enabled reports whether a category is active.
func Enabled(c Category) bool {
	once.Do(load)
	return enabled[c]
}

// Logf writes a categorized debug line when the category is active.
func Logf(c Category, format string, args ...any) {
	if !Enabled(c) {
		return
	}
	log.Printf("[%s] %s", c, fmt.Sprintf(format, args...))
}

// DumpPrompt writes the fully assembled prompt to a file when prompt
// debugging is on. Failures only log; a broken dump never affects a turn.
func DumpPrompt(sessionID string, iteration int, rendered string) {
	if !Enabled(Prompt) {
		return
	}
	name := fmt.Sprintf("argo-prompt-%s-%d-%d.txt", sessionID, iteration, time.Now().UnixNano())
	path := filepath.Join(dumpDir, name)
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		log.Printf("[prompt] failed to dump prompt to %s: %v", path, err)
		return
	}
	log.Printf("[prompt] dumped prompt to %s", path)
}
