package utils

import "sync"

// LenSyncMap returns the number of entries currently stored in m.
func LenSyncMap(m *sync.Map) int {
	var i int
	m.Range(func(_, _ interface{}) bool {
		i++
		return true
	})

	return i
}
