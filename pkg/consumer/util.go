package consumer

import "sort"

func sortUint8s(s []uint8) {
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}

func equalUint8s(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
