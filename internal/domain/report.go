package domain

import "strings"

// Report server-computed summary for a period. Read only.
type Report struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	From    Date   `json:"from"`
	To      Date   `json:"to"`
	Figures Totals `json:"figures"`
}

func (r Report) GetID() string { return r.ID }

func (r Report) Columns() []string {
	return []string{"ID", "Title", "From", "To", "Figures"}
}

func (r Report) Cells() []string {
	parts := make([]string, 0, len(r.Figures))
	for _, k := range r.Figures.Keys() {
		parts = append(parts, k+"="+money(r.Figures[k]))
	}
	return []string{r.ID, r.Title, r.From.String(), r.To.String(), strings.Join(parts, " ")}
}
