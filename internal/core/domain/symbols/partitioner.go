// internal/core/domain/symbols/partitioner.go
package symbols

import "sort"

// Partition детерминированно делит список символов на два шарда по букве.
// Символы сортируются лексикографически; всё, что строго меньше letter,
// попадает в первый шард, остальное во второй. Никакого состояния между
// вызовами не сохраняется — результат воспроизводим для одного и того же входа.
func Partition(symbols []string, letter string) (first []string, second []string) {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	idx := sort.SearchStrings(sorted, letter)

	first = sorted[:idx:idx]
	second = sorted[idx:]
	return first, second
}
