package crops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// UnknownCropError is returned by Lookup when a name matches no crop.
type UnknownCropError struct {
	Name       string
	Suggestion ID
}

func (e *UnknownCropError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown crop %q (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("unknown crop %q", e.Name)
}

// Lookup resolves a player-typed crop name: exact ID or name, then a unique
// prefix of at least two letters. Near misses produce an UnknownCropError
// carrying the closest suggestion.
func (t *Table) Lookup(name string) (ID, error) {
	token := strings.ToLower(strings.TrimSpace(name))
	if token == "" {
		return "", &UnknownCropError{Name: name}
	}
	if _, ok := t.rules[ID(token)]; ok {
		return ID(token), nil
	}
	for _, id := range t.ids {
		if strings.EqualFold(t.rules[id].Name, token) {
			return id, nil
		}
	}

	if len(token) >= 2 {
		var prefixed []ID
		for _, id := range t.ids {
			if strings.HasPrefix(string(id), token) {
				prefixed = append(prefixed, id)
			}
		}
		if len(prefixed) == 1 {
			return prefixed[0], nil
		}
	}

	return "", &UnknownCropError{Name: name, Suggestion: t.closest(token)}
}

type candidate struct {
	id   ID
	dist int
}

func (t *Table) closest(token string) ID {
	var cands []candidate
	for _, id := range t.ids {
		dist := levenshtein.ComputeDistance(token, string(id))
		if dist > distanceLimit(len(id)) {
			continue
		}
		cands = append(cands, candidate{id: id, dist: dist})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].dist == cands[j].dist {
			return cands[i].id < cands[j].id
		}
		return cands[i].dist < cands[j].dist
	})
	return cands[0].id
}

func distanceLimit(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 6:
		return 2
	default:
		return 3
	}
}
