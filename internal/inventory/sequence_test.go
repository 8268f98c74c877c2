package inventory

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInboundNumbersAreMonotonic(t *testing.T) {
	repo := newMemoryRepo()
	seq := NewSequencer(repo)
	ctx := context.Background()

	prev := int64(0)
	for i := 0; i < 200; i++ {
		num, err := seq.Next(ctx, FamilyInbound)
		require.NoError(t, err)
		require.Len(t, num, 6)
		v, err := strconv.ParseInt(num, 10, 64)
		require.NoError(t, err)
		require.Greater(t, v, prev)
		require.GreaterOrEqual(t, v, int64(100000))
		require.LessOrEqual(t, v, int64(199999))
		prev = v
	}
}

func TestFirstNumberPerFamily(t *testing.T) {
	seq := NewSequencer(newMemoryRepo())
	ctx := context.Background()

	for family, want := range map[Family]string{
		FamilyInbound:  "100001",
		FamilyOutbound: "20000000",
		FamilySTO:      "10000",
		FamilyVoid:     "VOID-00000001",
	} {
		got, err := seq.Next(ctx, family)
		require.NoError(t, err)
		require.Equal(t, want, got, family)
	}

	_, err := seq.Next(ctx, Family("bogus"))
	require.Error(t, err)
}

func TestCorruptedCounterIsClamped(t *testing.T) {
	repo := newMemoryRepo()
	seq := NewSequencer(repo)
	ctx := context.Background()

	repo.counters[FamilyInbound] = 41
	num, err := seq.Next(ctx, FamilyInbound)
	require.NoError(t, err)
	require.Equal(t, "100000", num)

	repo.counters[FamilyInbound] = 250000
	num, err = seq.Next(ctx, FamilyInbound)
	require.NoError(t, err)
	require.Equal(t, "199999", num)

	repo.counters[FamilySTO] = 100000
	num, err = seq.Next(ctx, FamilySTO)
	require.NoError(t, err)
	require.Equal(t, "99999", num)
}

func TestConcurrentAllocationIsUnique(t *testing.T) {
	seq := NewSequencer(newMemoryRepo())
	ctx := context.Background()

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := seq.Next(ctx, FamilyOutbound)
			if err == nil {
				results <- num
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]struct{}{}
	for num := range results {
		_, dup := seen[num]
		require.False(t, dup, num)
		seen[num] = struct{}{}
	}
	require.Len(t, seen, workers)
}

func TestBootstrapSkipsIssuedNumbers(t *testing.T) {
	repo := newMemoryRepo()
	repo.movements["100050"] = MovementRecord{MovementType: MovementInbound, TransactionNum: "100050"}
	repo.movements["250000"] = MovementRecord{MovementType: MovementInbound, TransactionNum: "250000"}
	repo.movements["10007"] = MovementRecord{MovementType: MovementSTO, TransactionNum: "10007"}
	repo.movements["VOID-1700000000000"] = MovementRecord{MovementType: MovementVoid, TransactionNum: "VOID-1700000000000"}
	seq := NewSequencer(repo)
	ctx := context.Background()

	require.NoError(t, seq.Bootstrap(ctx))
	require.NoError(t, seq.Bootstrap(ctx))

	num, err := seq.Next(ctx, FamilyInbound)
	require.NoError(t, err)
	require.Equal(t, "100051", num)
	num, err = seq.Next(ctx, FamilySTO)
	require.NoError(t, err)
	require.Equal(t, "10008", num)
	num, err = seq.Next(ctx, FamilyVoid)
	require.NoError(t, err)
	require.Equal(t, "VOID-00000001", num, "out of range legacy numbers are ignored")
}

func TestFamilyParse(t *testing.T) {
	v, ok := FamilyVoid.Parse("VOID-00000042")
	require.True(t, ok)
	require.EqualValues(t, 42, v)

	_, ok = FamilyVoid.Parse("00000042")
	require.False(t, ok)
	_, ok = FamilyOutbound.Parse("2000000x")
	require.False(t, ok)
	_, ok = FamilyOutbound.Parse("19999999")
	require.False(t, ok)
	v, ok = FamilyOutbound.Parse(" 20000123 ")
	require.True(t, ok)
	require.EqualValues(t, 20000123, v)
}
