package catalog_test

import (
	"errors"
	"testing"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/domain/catalog"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTransformApply(t *testing.T) {
	Convey("Given transform variants", t, func() {
		Convey("constant ignores the payload", func() {
			v, err := catalog.Transform{Kind: catalog.KindConstant, Value: 5}.Apply(nil)
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 5)
		})

		Convey("field copies or falls back to the default", func() {
			tr := catalog.Transform{Kind: catalog.KindField, Field: "calories", Default: 0}

			v, err := tr.Apply(map[string]any{"calories": 300})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 300)

			v, err = tr.Apply(map[string]any{"calories": nil})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)

			v, err = tr.Apply(map[string]any{})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 0)
		})

		Convey("compare picks a branch", func() {
			tr := catalog.Transform{Kind: catalog.KindCompare, Field: "hours", Op: catalog.OpGe, Value: 7, Then: "good", Else: "poor"}

			v, err := tr.Apply(map[string]any{"hours": 8.5})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "good")

			v, err = tr.Apply(map[string]any{"hours": 5})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "poor")

			v, err = tr.Apply(map[string]any{})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "poor")

			Convey("and a type mismatch is a transform error", func() {
				_, err := tr.Apply(map[string]any{"hours": "seven"})
				So(errors.Is(err, catalog.ErrTransform), ShouldBeTrue)
				So(errors.Is(err, catalog.ErrIncomparable), ShouldBeTrue)
			})
		})

		Convey("compare_fields reads both sides from the payload", func() {
			tr := catalog.Transform{Kind: catalog.KindCompareFields, Field: "amount", Op: catalog.OpGt, Other: "budget", Then: true, Else: false}

			v, err := tr.Apply(map[string]any{"amount": 120, "budget": 100})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, true)

			v, err = tr.Apply(map[string]any{"amount": 120})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)
		})

		Convey("an unknown kind fails", func() {
			_, err := catalog.Transform{Kind: "script"}.Apply(nil)
			So(errors.Is(err, catalog.ErrTransform), ShouldBeTrue)
		})
	})
}

func TestTransformMissing(t *testing.T) {
	Convey("Given transforms reading payload fields", t, func() {
		field := catalog.Transform{Kind: catalog.KindField, Field: "hours"}
		pair := catalog.Transform{Kind: catalog.KindCompareFields, Field: "amount", Other: "budget", Op: catalog.OpGt}

		Convey("Then absent and nil fields are missing", func() {
			So(field.Missing(map[string]any{"quality": "good"}), ShouldBeTrue)
			So(field.Missing(map[string]any{"hours": nil}), ShouldBeTrue)
			So(pair.Missing(map[string]any{"amount": 120}), ShouldBeTrue)
		})

		Convey("Then present fields are not", func() {
			So(field.Missing(map[string]any{"hours": 0}), ShouldBeFalse)
			So(pair.Missing(map[string]any{"amount": 120, "budget": 100}), ShouldBeFalse)
		})

		Convey("Then a constant is never missing", func() {
			So(catalog.Transform{Kind: catalog.KindConstant, Value: true}.Missing(nil), ShouldBeFalse)
		})
	})
}
