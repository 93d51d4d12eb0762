package scraper

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Unmarshaller interface {
	Unmarshal(s string) error
}

type UnmarshalMustBePointerError struct{}

func (err UnmarshalMustBePointerError) Error() string {
	return "must be a pointer to the value"
}

type UnmarshalUnexportedFieldError struct{}

func (err UnmarshalUnexportedFieldError) Error() string {
	return "field must be exported"
}

type UnmarshalFieldError struct {
	Field string
	Err   error
}

func (err UnmarshalFieldError) Error() string {
	e := err.Err
	fields := []string{err.Field}
	var next UnmarshalFieldError
	for errors.As(e, &next) {
		fields = append(fields, next.Field)
		e = next.Err
	}
	return fmt.Sprintf("%v: %v", strings.Join(fields, "."), e)
}

func (err UnmarshalFieldError) Unwrap() error { return err.Err }

// NoMatchError is returned when a required value had no matching element,
// or its `re` pattern matched nothing.
type NoMatchError struct {
	Selected int
}

func (err NoMatchError) Error() string {
	return fmt.Sprintf("length(%v) != 1", err.Selected)
}

var numberRe = regexp.MustCompile(` *([0-9,]+([.][0-9]*)?).*`)

func ExtractNumber(in string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		if strings.ContainsRune(",\u00a0\u3000", r) {
			return -1
		}
		return r
	}, numberRe.ReplaceAllString(in, "$1"))
	return strconv.ParseFloat(s, 64)
}

type UnmarshalOption struct {
	Attr  string         // if nonempty, extracts attribute of element. otherwise, uses Text()
	Re    string         // Regular Expression. must contain one capture.
	Time  string         // for time.Time only. parse with this format.
	Loc   *time.Location // time zone for parsing time.Time.
	First bool           // use the first match when several elements are selected
	Trim  bool           // strings.TrimSpace the extracted text
}

type selectedText struct {
	sel  *goquery.Selection
	text string
}

func selectTexts(sel *goquery.Selection, opt UnmarshalOption) ([]selectedText, error) {
	var re *regexp.Regexp
	if opt.Re != "" {
		var err error
		re, err = regexp.Compile(opt.Re)
		if err != nil {
			return nil, fmt.Errorf("re:%#v: %w", opt.Re, err)
		}
	}

	selected := make([]selectedText, 0, sel.Length())
	for i := 0; i < sel.Length(); i++ {
		j := sel.Eq(i)

		var s string
		if opt.Attr != "" {
			w, ok := j.Attr(opt.Attr)
			if !ok {
				continue
			}
			s = w
		} else {
			s = j.Text()
		}

		if re != nil {
			submatch := re.FindStringSubmatch(s)
			switch len(submatch) - 1 {
			case -1:
				continue
			case 1:
				s = submatch[1]
			default:
				return nil, fmt.Errorf("re:%#v: matched count of the regular expression is %d, should be 0 or 1, for text %#v", opt.Re, len(submatch)-1, s)
			}
		}

		if opt.Trim {
			s = strings.TrimSpace(s)
		}
		selected = append(selected, selectedText{j, s})
	}
	return selected, nil
}

func unmarshalValue(value reflect.Value, sel *goquery.Selection, opt UnmarshalOption) error {
	if !value.CanSet() {
		return errors.New("value must CanSet")
	}

	selected, err := selectTexts(sel, opt)
	if err != nil {
		return err
	}

	if value.Kind() == reflect.Slice {
		rv := reflect.MakeSlice(value.Type(), len(selected), len(selected))
		for i, one := range selected {
			if err := unmarshalValueOne(rv.Index(i), one.sel, one.text, opt); err != nil {
				return fmt.Errorf("#%d: %w", i, err)
			}
		}
		value.Set(rv)
		return nil
	}

	if value.Kind() == reflect.Ptr {
		if len(selected) == 0 {
			value.Set(reflect.Zero(value.Type()))
			return nil
		}
		newValue := reflect.New(value.Type().Elem())
		value.Set(newValue)
		value = newValue.Elem()
	}

	if opt.First && len(selected) > 1 {
		selected = selected[:1]
	}
	if len(selected) != 1 {
		return NoMatchError{len(selected)}
	}

	return unmarshalValueOne(value, selected[0].sel, selected[0].text, opt)
}

const (
	findTag  = "find"
	attrTag  = "attr"
	timeTag  = "time"
	reTag    = "re"
	firstTag = "first"
	trimTag  = "trim"
)

func unmarshalStruct(value reflect.Value, sel *goquery.Selection, opt UnmarshalOption) error {
	if opt.Re != "" {
		return fmt.Errorf("`re` tag must be empty for struct")
	}
	if opt.Attr != "" {
		return fmt.Errorf("`attr` tag must be empty for struct")
	}

	vt := value.Type()
	for i := 0; i < vt.NumField(); i++ {
		fieldType := vt.Field(i)
		if fieldType.PkgPath != "" {
			return UnmarshalFieldError{fieldType.Name, UnmarshalUnexportedFieldError{}}
		}

		selected := sel
		if selector := fieldType.Tag.Get(findTag); selector != "" {
			selected = sel.Find(selector)
		}

		fieldOpt := UnmarshalOption{
			Attr:  fieldType.Tag.Get(attrTag),
			Time:  fieldType.Tag.Get(timeTag),
			Re:    fieldType.Tag.Get(reTag),
			Loc:   opt.Loc,
			First: fieldType.Tag.Get(firstTag) == "true",
			Trim:  fieldType.Tag.Get(trimTag) == "true",
		}

		if err := unmarshalValue(value.Field(i), selected, fieldOpt); err != nil {
			return UnmarshalFieldError{fieldType.Name, err}
		}
	}
	return nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 10, 64)
}

func unmarshalValueOne(value reflect.Value, sel *goquery.Selection, s string, opt UnmarshalOption) error {
	if _, ok := value.Interface().(time.Time); ok {
		if opt.Time == "" {
			return fmt.Errorf("time.Time: time tag is required")
		}
		t, err := time.ParseInLocation(opt.Time, strings.TrimSpace(s), opt.Loc)
		if err != nil {
			return err
		}
		value.Set(reflect.ValueOf(t))
		return nil
	}

	if opt.Time != "" {
		return fmt.Errorf("`time` tag must be empty unless time.Time")
	}
	if !value.CanAddr() {
		return fmt.Errorf("failed CanAddr: %v, %v", value, value.Type())
	}

	if inf, ok := value.Addr().Interface().(Unmarshaller); ok {
		return inf.Unmarshal(s)
	}

	switch value.Kind() {
	case reflect.Struct:
		return unmarshalStruct(value, sel, opt)

	case reflect.String:
		value.SetString(s)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := parseInt(s)
		if err != nil {
			return err
		}
		value.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := parseInt(s)
		if err != nil {
			return err
		}
		if i < 0 {
			return fmt.Errorf("negative value %d for %v", i, value.Type())
		}
		value.SetUint(uint64(i))

	case reflect.Float32, reflect.Float64:
		f, err := ExtractNumber(s)
		if err != nil {
			return err
		}
		value.SetFloat(f)

	default:
		return fmt.Errorf("unknown type %v", value.Type())
	}
	return nil
}

// Unmarshal parses selection and stores to v.
// if v is a struct, each field may specify following tags.
//   - `find` tag with CSS selector to specify sub element.
//   - `attr` tag with attribute name to get a text. if this tag not exists, get a text from text element.
//   - `re` tag with regular expression, use only matched substring from a text.
//   - `time` tag with time format to parse for time.Time.
//   - `first:"true"` to take the first of several matches instead of failing.
//   - `trim:"true"` to trim surrounding white space.
//
// A pointer field becomes nil when nothing matches.
func Unmarshal(v interface{}, selection *goquery.Selection, opt UnmarshalOption) error {
	if opt.Loc == nil {
		opt.Loc = time.UTC
	}

	ht := reflect.TypeOf(v)
	if ht == nil || ht.Kind() != reflect.Ptr {
		return UnmarshalMustBePointerError{}
	}

	return unmarshalValue(reflect.ValueOf(v).Elem(), selection, opt)
}
