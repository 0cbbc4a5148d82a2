package feed

import (
	"fmt"
	"strings"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run marks the stories rejected by the source's filters. Every story is
// returned; callers skip the ones with IsFiltered set.
func (f *Filterer) Run(stories []Story, sourceConfig *Config) []Story {
	if len(sourceConfig.Filters) == 0 {
		return stories
	}

	filtered := make([]Story, 0, len(stories))
	for _, story := range stories {
		isFiltered, filterReason := f.applyFilters(story, sourceConfig.Filters)
		story.IsFiltered = isFiltered
		story.FilterReason = filterReason
		filtered = append(filtered, story)
	}

	return filtered
}

func (f *Filterer) applyFilters(story Story, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(story, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(story Story, field string) string {
	switch field {
	case "title":
		return story.Title
	case "text":
		return story.Text
	case "link":
		return story.Link
	default:
		return ""
	}
}
