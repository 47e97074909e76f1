package wizard

import (
	"github.com/jackzampolin/pantry/internal/cookbooks"
	"github.com/jackzampolin/pantry/internal/ocrjob"
)

// ReviewableItem is an extracted result awaiting the user's decision.
// Edited never reverts to false within a review session.
type ReviewableItem struct {
	ocrjob.Result
	Keep   bool
	Edited bool
}

// ItemUpdate carries field overwrites. Nil fields are left alone.
type ItemUpdate struct {
	Name       *string
	PageNumber *int
	Ingredient *string
	Keep       *bool
}

// NewReviewableItems materializes job results with Keep set and Edited clear.
func NewReviewableItems(results []ocrjob.Result) []ReviewableItem {
	items := make([]ReviewableItem, len(results))
	for i, r := range results {
		items[i] = ReviewableItem{Result: cloneResult(r), Keep: true}
	}
	return items
}

// Apply overwrites the supplied fields. Content fields mark the item edited;
// Keep alone does not.
func (it *ReviewableItem) Apply(u ItemUpdate) {
	if u.Name != nil {
		it.Name = ptr(*u.Name)
		it.Edited = true
	}
	if u.PageNumber != nil {
		it.PageNumber = ptr(*u.PageNumber)
		it.Edited = true
	}
	if u.Ingredient != nil {
		it.Ingredient = ptr(*u.Ingredient)
		it.Edited = true
	}
	if u.Keep != nil {
		it.Keep = *u.Keep
	}
}

// ConfidenceValue returns the extraction confidence and whether one was reported.
func (it ReviewableItem) ConfidenceValue() (float64, bool) {
	if it.Confidence == nil {
		return 0, false
	}
	return *it.Confidence, true
}

// Projection is the row sent with the import confirmation.
func (it ReviewableItem) Projection() cookbooks.ConfirmRecipe {
	r := cloneResult(it.Result)
	return cookbooks.ConfirmRecipe{
		RecipeName: r.Name,
		PageNumber: r.PageNumber,
		Ingredient: r.Ingredient,
		Keep:       it.Keep,
	}
}

// Project converts every item, kept or not, for confirmation.
func Project(items []ReviewableItem) []cookbooks.ConfirmRecipe {
	rows := make([]cookbooks.ConfirmRecipe, len(items))
	for i, it := range items {
		rows[i] = it.Projection()
	}
	return rows
}

// Kept returns the items marked to keep.
func Kept(items []ReviewableItem) []ReviewableItem {
	return filter(items, true)
}

// Skipped returns the items marked to discard.
func Skipped(items []ReviewableItem) []ReviewableItem {
	return filter(items, false)
}

func filter(items []ReviewableItem, keep bool) []ReviewableItem {
	var out []ReviewableItem
	for _, it := range items {
		if it.Keep == keep {
			out = append(out, cloneItem(it))
		}
	}
	return out
}

func cloneItems(items []ReviewableItem) []ReviewableItem {
	if items == nil {
		return nil
	}
	out := make([]ReviewableItem, len(items))
	for i, it := range items {
		out[i] = cloneItem(it)
	}
	return out
}

func cloneItem(it ReviewableItem) ReviewableItem {
	it.Result = cloneResult(it.Result)
	return it
}

func cloneResult(r ocrjob.Result) ocrjob.Result {
	return ocrjob.Result{
		Name:        clonePtr(r.Name),
		PageNumber:  clonePtr(r.PageNumber),
		Ingredient:  clonePtr(r.Ingredient),
		Confidence:  clonePtr(r.Confidence),
		NeedsReview: clonePtr(r.NeedsReview),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}

func ptr[T any](v T) *T {
	return &v
}
