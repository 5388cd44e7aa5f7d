package period

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit 表示周期的时间单位。
type Unit uint8

const (
	Second Unit = iota + 1
	Minute
	Hour
	Day
)

var (
	// ErrUnknownPeriod 表示周期标识无法识别或不在支持列表中。
	ErrUnknownPeriod = errors.New("unknown period")
	// ErrNegativeDuration 表示请求的时长为负数。
	ErrNegativeDuration = errors.New("negative duration")
)

// Base 返回单位对应的时长。
func (u Unit) Base() time.Duration {
	switch u {
	case Second:
		return time.Second
	case Minute:
		return time.Minute
	case Hour:
		return time.Hour
	case Day:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Suffix 返回 CoinAPI period_id 中使用的单位后缀。
func (u Unit) Suffix() string {
	switch u {
	case Second:
		return "SEC"
	case Minute:
		return "MIN"
	case Hour:
		return "HRS"
	case Day:
		return "DAY"
	default:
		return ""
	}
}

func (u Unit) String() string {
	switch u {
	case Second:
		return "second"
	case Minute:
		return "minute"
	case Hour:
		return "hour"
	case Day:
		return "day"
	default:
		return "Unit(" + strconv.Itoa(int(u)) + ")"
	}
}

// Period 为 CoinAPI 支持的采样周期，例如 5SEC、1HRS。
// 零值不是合法周期。
type Period struct {
	unit  Unit
	count uint8
}

// New 以单位和倍数构造周期，不校验是否受支持，见 Valid。
func New(unit Unit, count uint8) Period {
	return Period{unit: unit, count: count}
}

// Unit 返回周期单位。
func (p Period) Unit() Unit {
	return p.unit
}

// Count 返回单位倍数。
func (p Period) Count() uint8 {
	return p.count
}

// Duration 返回周期跨度。
func (p Period) Duration() time.Duration {
	return time.Duration(p.count) * p.unit.Base()
}

// Compare 按时长比较两个周期。
func (p Period) Compare(other Period) int {
	return cmp.Compare(p.Duration(), other.Duration())
}

// Valid 判断周期是否在支持列表中。
func (p Period) Valid() bool {
	i, ok := search(p.Duration())
	return ok && supported[i] == p
}

// String 返回 period_id 形式的标识，例如 30SEC、12HRS、10DAY。
func (p Period) String() string {
	suffix := p.unit.Suffix()
	if suffix == "" {
		return "Period(" + strconv.Itoa(int(p.unit)) + "," + strconv.Itoa(int(p.count)) + ")"
	}
	return strconv.Itoa(int(p.count)) + suffix
}

// MarshalText 实现 encoding.TextMarshaler。
func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPeriod, p)
	}
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse 解析 period_id 标识，仅接受支持列表中的周期。
func Parse(s string) (Period, error) {
	id := strings.ToUpper(strings.TrimSpace(s))
	for _, unit := range []Unit{Second, Minute, Hour, Day} {
		digits, ok := strings.CutSuffix(id, unit.Suffix())
		if !ok {
			continue
		}
		if digits == "" || digits[0] == '0' {
			break
		}
		n, err := strconv.ParseUint(digits, 10, 8)
		if err != nil {
			break
		}
		p := New(unit, uint8(n))
		if !p.Valid() {
			break
		}
		return p, nil
	}
	return Period{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
}
