package league

import "fmt"

// Pair is one pairing of schedule slots; A hosts in the first half.
type Pair struct {
	A, B int
}

// GenerateSchedule returns a single round-robin pattern for n slots using
// the circle method: n-1 rounds of n/2 pairs, every slot pair exactly once.
// Slot 0 stays fixed while the others rotate.
func GenerateSchedule(n int) ([][]Pair, error) {
	if n%2 != 0 {
		return nil, fmt.Errorf("team count must be even, got %d: %w", n, ErrInvalidInput)
	}
	if n < 2 {
		return [][]Pair{}, nil
	}

	slots := make([]int, n)
	for i := range slots {
		slots[i] = i
	}

	rounds := make([][]Pair, n-1)
	for r := 0; r < n-1; r++ {
		round := make([]Pair, n/2)
		for i := 0; i < n/2; i++ {
			round[i] = Pair{A: slots[i], B: slots[n-1-i]}
		}
		rounds[r] = round

		// Rotate (except first)
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}
	return rounds, nil
}
