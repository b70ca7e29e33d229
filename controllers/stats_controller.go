package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/mutena/fotomutena/store"
	"github.com/mutena/fotomutena/utils"
)

// StatsController provides gallery statistics such as item counts per category.
type StatsController struct {
	collections []*store.Collection
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(collections ...*store.Collection) *StatsController {
	return &StatsController{collections: collections}
}

type categoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type collectionStats struct {
	Total      int             `json:"total"`
	Categories []categoryCount `json:"categories"`
	Fallback   bool            `json:"fallback"`
}

// GetStats returns per-collection totals and category counts in first-seen order.
func (s *StatsController) GetStats(ctx *gin.Context) {
	out := gin.H{}
	for _, c := range s.collections {
		snap := c.Items(ctx.Request.Context())
		st := collectionStats{Total: len(snap.Value), Categories: []categoryCount{}, Fallback: snap.Fallback}
		index := map[string]int{}
		for _, r := range snap.Value {
			i, ok := index[r.Category]
			if !ok {
				i = len(st.Categories)
				index[r.Category] = i
				st.Categories = append(st.Categories, categoryCount{Category: r.Category})
			}
			st.Categories[i].Count++
		}
		out[c.Name()] = st
	}
	utils.Success(ctx, out)
}
