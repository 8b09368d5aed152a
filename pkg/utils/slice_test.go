package utils_test

import (
	"strconv"
	"testing"

	"github.com/poselab/dispatchd/pkg/utils"
	"github.com/poselab/dispatchd/pkg/utils/cmp"
)

func TestMap(t *testing.T) {
	actual := utils.Map([]int{1, 2, 3}, strconv.Itoa)
	if !cmp.SliceEq(actual, []string{"1", "2", "3"}) {
		t.Errorf("actual=%v", actual)
	}

	empty := utils.Map([]int{}, strconv.Itoa)
	if len(empty) != 0 {
		t.Errorf("mapping empty slice should be empty: %v", empty)
	}
}

func TestToMap(t *testing.T) {
	type item struct {
		key   string
		value int
	}

	actual := utils.ToMap(
		[]item{{"a", 1}, {"b", 2}, {"a", 3}},
		func(i item) string { return i.key },
	)

	expected := map[string]item{"a": {"a", 3}, "b": {"b", 2}}
	if !cmp.MapEq(actual, expected) {
		t.Errorf("actual=%v, expected=%v", actual, expected)
	}
}

func TestFilter(t *testing.T) {
	actual := utils.Filter(
		[]int{1, 2, 3, 4, 5},
		func(v int) bool { return v%2 == 0 },
	)
	if !cmp.SliceEq(actual, []int{2, 4}) {
		t.Errorf("actual=%v", actual)
	}
}

func TestFirst(t *testing.T) {
	t.Run("it returns the first match", func(t *testing.T) {
		actual, ok := utils.First(
			[]int{1, 2, 3, 4},
			func(v int) bool { return 2 < v },
		)
		if !ok || actual != 3 {
			t.Errorf("actual=(%v, %v)", actual, ok)
		}
	})

	t.Run("it reports no match", func(t *testing.T) {
		_, ok := utils.First(
			[]int{1, 2, 3, 4},
			func(v int) bool { return 10 < v },
		)
		if ok {
			t.Error("should not match")
		}
	})
}

func TestConcat(t *testing.T) {
	actual := utils.Concat([]int{1, 2}, []int{}, []int{3})
	if !cmp.SliceEq(actual, []int{1, 2, 3}) {
		t.Errorf("actual=%v", actual)
	}
}

func TestSorted(t *testing.T) {
	source := []int{3, 1, 2}
	actual := utils.Sorted(source, func(a, b int) bool { return a < b })
	if !cmp.SliceEq(actual, []int{1, 2, 3}) {
		t.Errorf("actual=%v", actual)
	}
	if !cmp.SliceEq(source, []int{3, 1, 2}) {
		t.Errorf("source should not be changed: %v", source)
	}
}
