package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度（允许极小的浮点误差）。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 12, 14.4, 72, 96, 144, 1000}
	for _, pt := range samples {
		mm := pt * PtToMm
		back := mm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt 往返误差过大: in=%gpt mm=%g back=%g diff=%g", pt, mm, back, diff)
		}
	}
}

// TestLengthConversions 覆盖 Length 在常见单位上的转换正确性。
func TestLengthConversions(t *testing.T) {
	if got := (Length{Value: 1, Unit: UnitIN}).Pt(); math.Abs(got-72) > 1e-9 {
		t.Fatalf("1in 转 pt 期望 72，实际 %g", got)
	}
	if got := (Length{Value: 2.54, Unit: UnitCM}).Mm(); math.Abs(got-25.4) > 1e-9 {
		t.Fatalf("2.54cm 转 mm 期望 25.4，实际 %g", got)
	}
	if got := (Length{Value: 10, Unit: UnitMM}).Pt(); math.Abs(got-10*MmToPt) > 1e-9 {
		t.Fatalf("10mm 转 pt 期望 %g，实际 %g", 10*MmToPt, got)
	}
	if got := (Length{Value: 12}).Pt(); got != 12 {
		t.Fatalf("无单位数值应视为 pt，实际 %g", got)
	}
}

func TestParseLength(t *testing.T) {
	l, err := ParseLength(" 20mm ")
	if err != nil || l.Unit != UnitMM || l.Value != 20 {
		t.Fatalf("解析 20mm 失败: %+v %v", l, err)
	}
	if _, err := ParseLength("abc"); err == nil {
		t.Fatalf("非法长度应返回错误")
	}
	if got := MustPt("bad", 7); got != 7 {
		t.Fatalf("解析失败应返回回退值，实际 %g", got)
	}
}

// TestLineHeightSpec 验证倍数、百分比与绝对值三种行高写法。
func TestLineHeightSpec(t *testing.T) {
	s, err := ParseLineHeight("150%")
	if err != nil || s.Kind != LineHeightFactor || math.Abs(s.Factor-1.5) > 1e-9 {
		t.Fatalf("150%% 解析错误: %+v %v", s, err)
	}
	if got := s.Resolve(12); math.Abs(got-18) > 1e-9 {
		t.Fatalf("1.5 倍行高期望 18pt，实际 %g", got)
	}
	if p := s.Paragraph(); math.Abs(p.Percent-150) > 1e-9 || p.Fixed != 0 {
		t.Fatalf("映射到段落行高错误: %+v", p)
	}

	abs, err := ParseLineHeight("18pt")
	if err != nil || abs.Kind != LineHeightAbsolute {
		t.Fatalf("18pt 解析错误: %+v %v", abs, err)
	}
	if p := abs.Paragraph(); p.Fixed != 18 {
		t.Fatalf("绝对行高应映射为固定行高: %+v", p)
	}
}
