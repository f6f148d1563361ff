package preference_service

import "sort"

// mergeScalar folds observed values into a scalar profile field.
// The result is the mode of the observations; when several values tie
// for the mode, the previous value wins if it is among them, otherwise
// the first-observed value does. No observations keep the previous value.
func mergeScalar(previous string, observed []string) string {
	if len(observed) == 0 {
		return previous
	}

	counts := make(map[string]int, len(observed))
	for _, value := range observed {
		counts[value]++
	}

	max := 0
	for _, count := range counts {
		if count > max {
			max = count
		}
	}

	if counts[previous] == max {
		return previous
	}
	for _, value := range observed {
		if counts[value] == max {
			return value
		}
	}
	return previous
}

// mergeList folds new values into a bounded list profile field.
// Old and new values are counted together and the most frequent limit
// values win, ties broken by first-seen order.
func mergeList(old, observed []string, limit int) []string {
	type entry struct {
		value     string
		count     int
		firstSeen int
	}

	byValue := make(map[string]*entry)
	var order []*entry

	add := func(value string) {
		if value == "" {
			return
		}
		if e, ok := byValue[value]; ok {
			e.count++
			return
		}
		e := &entry{value: value, count: 1, firstSeen: len(order)}
		byValue[value] = e
		order = append(order, e)
	}

	for _, value := range old {
		add(value)
	}
	for _, value := range observed {
		add(value)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].firstSeen < order[j].firstSeen
	})

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}

	result := make([]string, 0, len(order))
	for _, e := range order {
		result = append(result, e.value)
	}
	return result
}
