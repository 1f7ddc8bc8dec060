package output

import "sort"

// Summary aggregates a batch of results.
type Summary struct {
	Total       int      `json:"total"`
	Succeeded   int      `json:"successful_analyses"`
	Failed      int      `json:"failed_analyses"`
	SuccessRate float64  `json:"success_rate"`
	ModelsUsed  []string `json:"models_used"`
	Errors      []string `json:"errors"`
}

// Aggregate summarizes a batch: counts, success rate as a percentage, the
// distinct models involved, and every failure message.
func Aggregate(results []Result) Summary {
	s := Summary{
		Total:      len(results),
		ModelsUsed: []string{},
		Errors:     []string{},
	}
	if len(results) == 0 {
		return s
	}

	models := make(map[string]struct{})
	for _, r := range results {
		model := r.Model
		if model == "" {
			model = "unknown"
		}
		models[model] = struct{}{}
		if r.Success {
			s.Succeeded++
			continue
		}
		s.Failed++
		if r.Err != "" {
			s.Errors = append(s.Errors, r.Err)
		}
	}

	for model := range models {
		s.ModelsUsed = append(s.ModelsUsed, model)
	}
	sort.Strings(s.ModelsUsed)
	s.SuccessRate = float64(s.Succeeded) / float64(s.Total) * 100

	return s
}

// Filter narrows a batch to successes only, to one model, or both.
func Filter(results []Result, successOnly bool, model string) []Result {
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if successOnly && !r.Success {
			continue
		}
		if model != "" && r.Model != model {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
