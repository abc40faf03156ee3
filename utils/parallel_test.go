package utils

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestGroupWorkParallel(t *testing.T) {
	const totalSize = 1037

	var mu sync.Mutex
	seen := make([]bool, totalSize)
	groupsStarted := 0

	err := GroupWorkParallel(
		context.Background(),
		totalSize,
		func(numGroups int) {
			test.That(t, numGroups, test.ShouldBeLessThanOrEqualTo, ParallelFactor)
		},
		func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
			mu.Lock()
			groupsStarted++
			mu.Unlock()
			return func(memberNum, workNum int) {
					mu.Lock()
					test.That(t, seen[workNum], test.ShouldBeFalse)
					seen[workNum] = true
					mu.Unlock()
				}, func() {
				}
		})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, groupsStarted, test.ShouldBeGreaterThan, 0)
	for i := range seen {
		test.That(t, seen[i], test.ShouldBeTrue)
	}
}

func TestGroupWorkParallelEmpty(t *testing.T) {
	err := GroupWorkParallel(
		context.Background(),
		0,
		func(numGroups int) { t.Fatal("no work should start") },
		func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
			t.Fatal("no work should start")
			return nil, nil
		})
	test.That(t, err, test.ShouldBeNil)
}

func TestGroupWorkParallelFewerThanWorkers(t *testing.T) {
	var mu sync.Mutex
	ran := 0
	err := GroupWorkParallel(
		context.Background(),
		2,
		func(numGroups int) {
			test.That(t, numGroups, test.ShouldBeLessThanOrEqualTo, 2)
		},
		func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
			return func(memberNum, workNum int) {
				mu.Lock()
				ran++
				mu.Unlock()
			}, nil
		})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ran, test.ShouldEqual, 2)
}

func TestRunInParallel(t *testing.T) {
	var mu sync.Mutex
	ran := 0
	bump := func(ctx context.Context) error {
		mu.Lock()
		ran++
		mu.Unlock()
		return nil
	}

	_, err := RunInParallel(context.Background(), []SimpleFunc{bump, bump, bump})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ran, test.ShouldEqual, 3)
}

func TestRunInParallelSiblingsSurvive(t *testing.T) {
	errFail := errors.New("whoops")
	var mu sync.Mutex
	ran := 0

	_, err := RunInParallel(context.Background(), []SimpleFunc{
		func(ctx context.Context) error { return errFail },
		func(ctx context.Context) error {
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		},
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, errFail), test.ShouldBeTrue)
	// the failure does not cancel the sibling
	test.That(t, ran, test.ShouldEqual, 1)
}

func TestRunInParallelPanic(t *testing.T) {
	_, err := RunInParallel(context.Background(), []SimpleFunc{
		func(ctx context.Context) error { panic("eek") },
	})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "eek")
}
