package period

import (
	"fmt"
	"sort"
	"time"
)

// supported 按时长严格升序排列，Resolve 依赖这一顺序做二分查找。
var supported = [...]Period{
	// seconds
	{Second, 1}, {Second, 2}, {Second, 3}, {Second, 4}, {Second, 5},
	{Second, 6}, {Second, 10}, {Second, 15}, {Second, 20}, {Second, 30},
	// minutes
	{Minute, 1}, {Minute, 2}, {Minute, 3}, {Minute, 4}, {Minute, 5},
	{Minute, 6}, {Minute, 10}, {Minute, 15}, {Minute, 20}, {Minute, 30},
	// hours
	{Hour, 1}, {Hour, 2}, {Hour, 3}, {Hour, 4}, {Hour, 6}, {Hour, 8}, {Hour, 12},
	// days
	{Day, 1}, {Day, 2}, {Day, 3}, {Day, 5}, {Day, 7}, {Day, 10},
}

var supportedDurations = func() [len(supported)]time.Duration {
	var out [len(supported)]time.Duration
	for i, p := range supported {
		out[i] = p.Duration()
	}
	return out
}()

// Smallest 返回最小的支持周期 (1SEC)。
func Smallest() Period {
	return supported[0]
}

// Largest 返回最大的支持周期 (10DAY)。
func Largest() Period {
	return supported[len(supported)-1]
}

// Supported 返回全部支持周期的副本，按时长升序。
func Supported() []Period {
	out := make([]Period, len(supported))
	copy(out, supported[:])
	return out
}

// MismatchError 表示请求的时长没有完全对应的支持周期。
// 这不是故障，调用方可以接受 Closest，也可以把它当作失败。
type MismatchError struct {
	// Requested 为调用方请求的时长。
	Requested time.Duration
	// Closest 为最接近的支持周期。
	Closest Period
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("period %s is not supported, closest is %s", e.Requested, e.Closest)
}

// Resolve 将任意时长映射到支持周期。
//
// 完全匹配时返回对应周期和 nil；否则返回最接近的周期以及 *MismatchError。
// 距离相等时取较大的周期，小于 1SEC 取 1SEC，大于 10DAY 取 10DAY。
// 负数时长返回零值周期和 ErrNegativeDuration。
func Resolve(d time.Duration) (Period, error) {
	if d < 0 {
		return Period{}, fmt.Errorf("%w: %s", ErrNegativeDuration, d)
	}

	i, ok := search(d)
	if ok {
		return supported[i], nil
	}

	// 未命中时 durations[i-1] < d < durations[i]
	var closest Period
	switch {
	case i == 0:
		closest = supported[0]
	case i == len(supported):
		closest = supported[len(supported)-1]
	default:
		lower := d - supportedDurations[i-1]
		higher := supportedDurations[i] - d
		if lower < higher {
			closest = supported[i-1]
		} else {
			closest = supported[i]
		}
	}

	return closest, &MismatchError{Requested: d, Closest: closest}
}

// Nearest 返回最接近 d 的支持周期，不区分是否完全匹配。
// 负数时长按 0 处理，即返回 1SEC。
func Nearest(d time.Duration) Period {
	if d < 0 {
		return supported[0]
	}
	p, _ := Resolve(d)
	return p
}

// search 返回 d 在升序时长表中的插入位置，以及该位置是否恰好相等。
func search(d time.Duration) (int, bool) {
	i := sort.Search(len(supportedDurations), func(i int) bool {
		return supportedDurations[i] >= d
	})
	return i, i < len(supportedDurations) && supportedDurations[i] == d
}
