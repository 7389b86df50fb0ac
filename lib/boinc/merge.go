package boinc

import (
	"boincstats/lib/textutil"

	"github.com/antzucaro/matchr"
)

// MatchThreshold is the minimum Jaro-Winkler similarity for two project
// names to be considered the same project.
const MatchThreshold = 0.9

// NameLink pairs a name with the most similar target name.
type NameLink struct {
	Name        string
	Target      string
	Correlation float64
}

// LinkNames pairs every name with a distinct target. Names equal after
// normalization are paired first, the rest go to the most similar target
// left over, if that one is similar enough.
func LinkNames(names, targets []string) []NameLink {
	var result []NameLink
	matchedName := map[string]struct{}{}
	matchedTarget := map[string]struct{}{}

	for _, name := range names {
		normalized := textutil.NormalizeName(name)
		for _, target := range targets {
			if _, ok := matchedTarget[target]; ok {
				continue
			}
			if normalized == textutil.NormalizeName(target) {
				result = append(result, NameLink{Name: name, Target: target, Correlation: 1})
				matchedName[name] = struct{}{}
				matchedTarget[target] = struct{}{}
				break
			}
		}
	}

	for _, name := range names {
		if _, ok := matchedName[name]; ok {
			continue
		}

		var mostSimilarity float64
		var mostSimilarTarget string
		for _, target := range targets {
			if _, ok := matchedTarget[target]; ok {
				continue
			}
			similarity := matchr.JaroWinkler(
				textutil.NormalizeName(name),
				textutil.NormalizeName(target),
				false,
			)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilarTarget = target
			}
		}

		if mostSimilarity >= MatchThreshold {
			result = append(result, NameLink{
				Name:        name,
				Target:      mostSimilarTarget,
				Correlation: mostSimilarity,
			})
			matchedName[name] = struct{}{}
			matchedTarget[mostSimilarTarget] = struct{}{}
		}
	}

	return result
}

func projectKeys(p Project) []string {
	keys := []string{p.Name}
	if p.ShortName != "" {
		keys = append(keys, p.ShortName)
	}
	return keys
}

// Merge distributes tasks and badges over projects. A task or badge whose
// project matches none of the given projects opens a new one, after the
// given projects in the order first seen.
func Merge(projects []Project, tasks []Task, badges []Badge) []Project {
	merged := make([]Project, len(projects))
	copy(merged, projects)

	// target name -> index in merged
	byName := map[string]int{}
	var targets []string
	addTargets := func(idx int) {
		for _, key := range projectKeys(merged[idx]) {
			if _, ok := byName[key]; ok {
				continue
			}
			byName[key] = idx
			targets = append(targets, key)
		}
	}
	for i := range merged {
		addTargets(i)
	}

	resolve := func(name, short string) int {
		if short != "" {
			if idx, ok := byName[short]; ok {
				return idx
			}
		}
		if idx, ok := byName[name]; ok {
			return idx
		}
		links := LinkNames([]string{name}, targets)
		if len(links) > 0 {
			return byName[links[0].Target]
		}
		merged = append(merged, Project{Name: name, ShortName: short})
		idx := len(merged) - 1
		addTargets(idx)
		return idx
	}

	for _, t := range tasks {
		idx := resolve(t.Project, t.ProjectShort)
		merged[idx].Tasks = append(merged[idx].Tasks, t)
	}
	for _, b := range badges {
		idx := resolve(b.Project, "")
		merged[idx].Badges = append(merged[idx].Badges, b)
	}

	return merged
}
