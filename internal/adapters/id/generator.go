package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) SessionID() string {
	return g.generate("as")
}

func (g *Generator) MessageID() string {
	return g.generate("am")
}

func (g *Generator) SummaryID() string {
	return g.generate("asum")
}

func (g *Generator) SnapshotID() string {
	return g.generate("asnap")
}

func (g *Generator) FactID() string {
	return g.generate("af")
}

func (g *Generator) ToolRunID() string {
	return g.generate("atr")
}

func (g *Generator) ChunkID() string {
	return g.generate("ach")
}
