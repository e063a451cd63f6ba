package document

import "github.com/ByLCY/textflow/geom"

// AnchorType says what an anchored object is attached to.
type AnchorType int

const (
	AnchorAsChar AnchorType = iota
	AnchorChar
	AnchorParagraph
	AnchorPage
)

// HPos is the horizontal placement rule of a floating object.
type HPos int

const (
	HLeft HPos = iota
	HCenter
	HRight
	HInside
	HOutside
	HFromLeft
	HFromInside
)

// HRel is the horizontal reference area of a floating object.
type HRel int

const (
	HRelParagraph HRel = iota
	HRelParagraphContent
	HRelParagraphStartMargin
	HRelParagraphEndMargin
	HRelPage
	HRelPageContent
	HRelPageStartMargin
	HRelPageEndMargin
	HRelChar
)

// VPos is the vertical placement rule of an anchored object.
type VPos int

const (
	VTop VPos = iota
	VMiddle
	VBottom
	VFromTop
	VBelow
)

// VRel is the vertical reference area of an anchored object.
type VRel int

const (
	VRelParagraph VRel = iota
	VRelParagraphContent
	VRelPage
	VRelPageContent
	VRelChar
	VRelLine
	VRelBaseline
	VRelText
)

// WrapSide says where text may flow around an obstruction.
type WrapSide int

const (
	WrapNone WrapSide = iota
	WrapLeft
	WrapRight
	WrapBoth
	WrapBiggest
	WrapEnough
	WrapRunThrough
)

// Anchor is an object embedded in the text: inline (as-char) or floating.
type Anchor struct {
	ID   string     `json:"id"`
	Type AnchorType `json:"type"`

	HPos   HPos       `json:"hpos,omitempty"`
	HRel   HRel       `json:"hrel,omitempty"`
	VPos   VPos       `json:"vpos,omitempty"`
	VRel   VRel       `json:"vrel,omitempty"`
	Offset geom.Point `json:"offset"`

	Size geom.Size `json:"size"`
	// Outline is the contour relative to the object origin; nil means the bounding box.
	Outline geom.Polygon `json:"outline,omitempty"`

	Wrap      WrapSide `json:"wrap,omitempty"`
	Distance  Insets   `json:"distance"`
	Threshold float64  `json:"threshold,omitempty"`

	// Page is the 1-based page of a page-anchored object; 0 means the page
	// holding the anchor position.
	Page int `json:"page,omitempty"`

	Label string `json:"label,omitempty"`
	Fill  *Color `json:"fill,omitempty"`
}

// IsInline reports whether the object flows like a character.
func (a *Anchor) IsInline() bool { return a.Type == AnchorAsChar }

// Shape returns the outline in object coordinates.
func (a *Anchor) Shape() geom.Polygon {
	if len(a.Outline) >= 3 {
		return a.Outline
	}
	return geom.RectPolygon(geom.Rect{W: a.Size.W, H: a.Size.H})
}
