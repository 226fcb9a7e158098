// Package linkgraph builds the graph of internal links between wiki pages.
// It backs the dangling link report and the related articles list.
package linkgraph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"onfawiki/internal/wiki"
)

type Node struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ParentID string `json:"parentId,omitempty"`
	Outbound int    `json:"outbound"`
	Inbound  int    `json:"inbound"`
}

type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type Totals struct {
	Pages    int `json:"pages"`
	Links    int `json:"links"`
	Dangling int `json:"dangling"`
}

type Graph struct {
	GeneratedAt time.Time `json:"generated_at"`
	Totals      Totals    `json:"totals"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	Dangling    []Edge    `json:"dangling"`
}

// Build scans every page body. Links to missing pages are collected as
// dangling; self links are ignored.
func Build(doc wiki.Document) Graph {
	index := make(map[string]int, len(doc.Pages))
	nodes := make([]Node, 0, len(doc.Pages))
	for _, p := range doc.Pages {
		if _, dup := index[p.ID]; dup {
			continue
		}
		index[p.ID] = len(nodes)
		nodes = append(nodes, Node{ID: p.ID, Title: p.Title, ParentID: p.ParentID})
	}

	edges := make([]Edge, 0)
	dangling := make([]Edge, 0)
	for _, p := range doc.Pages {
		for _, target := range ExtractLinks(p.Content) {
			if target == p.ID {
				continue
			}
			j, ok := index[target]
			if !ok {
				dangling = append(dangling, Edge{Source: p.ID, Target: target})
				continue
			}
			edges = append(edges, Edge{Source: p.ID, Target: target})
			nodes[index[p.ID]].Outbound++
			nodes[j].Inbound++
		}
	}

	return Graph{
		GeneratedAt: time.Now().UTC(),
		Totals: Totals{
			Pages:    len(nodes),
			Links:    len(edges),
			Dangling: len(dangling),
		},
		Nodes:    nodes,
		Edges:    edges,
		Dangling: dangling,
	}
}

// Related ranks up to limit pages related to id. A direct link in either
// direction scores 2, sharing a parent menu scores 1. Ties keep page order.
func (g Graph) Related(id string, limit int) []string {
	var self *Node
	order := make(map[string]int, len(g.Nodes))
	for i := range g.Nodes {
		order[g.Nodes[i].ID] = i
		if g.Nodes[i].ID == id {
			self = &g.Nodes[i]
		}
	}
	if self == nil || limit <= 0 {
		return nil
	}

	score := make(map[string]int)
	for _, e := range g.Edges {
		switch id {
		case e.Source:
			score[e.Target] += 2
		case e.Target:
			score[e.Source] += 2
		}
	}
	if self.ParentID != "" {
		for _, n := range g.Nodes {
			if n.ID != id && n.ParentID == self.ParentID {
				score[n.ID]++
			}
		}
	}
	delete(score, id)

	ids := make([]string, 0, len(score))
	for k := range score {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool {
		if score[ids[i]] == score[ids[j]] {
			return order[ids[i]] < order[ids[j]]
		}
		return score[ids[i]] > score[ids[j]]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// Write stores g as indented JSON at outPath.
func Write(outPath string, g Graph) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(outPath, data, 0o644)
}
