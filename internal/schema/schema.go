// Package schema は信頼できない入力値を宣言済みの形に従って検証・正規化する。
//
// フィールドは宣言順に検証され、最初に失敗したフィールドのメッセージのみを返す。
// 変換（小文字化など）は検証を通過したフィールドにのみ適用され、
// 変換後の値も同じルールで再検証される。
// 個々のルール判定にはgo-playground/validatorのタグ構文を使用する。
// 標準のタグに加えて、maxbytes・haslower・hasupper・hasdigit・hassymbolを使用できる。
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/citary/internal/model"
)

// Input はJSONボディなどから得た未検証の入力値。
type Input map[string]any

type fieldType int

const (
	typeString fieldType = iota
	typeInt
)

// Field はスキーマ内の1フィールドの宣言。
type Field struct {
	name        string
	typ         fieldType
	rules       string
	required    bool
	messages    map[string]string
	typeMessage string
	transforms  []func(string) string
}

// String は文字列フィールドを宣言する。
// rulesにはvalidatorのタグ（例: "required,max=50"）を指定する。
// 文字列のrequiredは空文字を許可しない。
func String(name, rules string) *Field {
	return newField(name, typeString, rules)
}

// Int は整数フィールドを宣言する。
// JSONの数値は小数部を持たないことを検証してから範囲チェックを行う。
func Int(name, rules string) *Field {
	return newField(name, typeInt, rules)
}

func newField(name string, typ fieldType, rules string) *Field {
	f := &Field{
		name:     name,
		typ:      typ,
		messages: make(map[string]string),
	}
	var kept []string
	for _, r := range strings.Split(rules, ",") {
		r = strings.TrimSpace(r)
		switch {
		case r == "":
		case r == "required":
			f.required = true
			// 整数の0はvalidatorのrequiredでは未設定扱いになるため、
			// 存在チェックは自前で行い、文字列の場合のみ空文字判定をvalidatorに任せる。
			if typ == typeString {
				kept = append(kept, r)
			}
		default:
			kept = append(kept, r)
		}
	}
	f.rules = strings.Join(kept, ",")
	return f
}

// Message はルールタグごとのエラーメッセージを上書きする。
// tagには"required"、"max"、"min"、"email"、"int"などを指定する。
func (f *Field) Message(tag, msg string) *Field {
	f.messages[tag] = msg
	return f
}

// TypeMessage は型が一致しない場合のメッセージを上書きする。
func (f *Field) TypeMessage(msg string) *Field {
	f.typeMessage = msg
	return f
}

// Transform は検証通過後に適用する変換を追加する。文字列フィールドのみ有効。
func (f *Field) Transform(fn func(string) string) *Field {
	f.transforms = append(f.transforms, fn)
	return f
}

// Schema は宣言順のフィールド集合。
// 生成後は不変で、複数のゴルーチンから同時に使用できる。
type Schema struct {
	fields   []*Field
	validate *validator.Validate
}

// New はSchemaを生成する。
func New(fields ...*Field) *Schema {
	v := validator.New()
	for tag, fn := range customRules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("schema: register %s: %v", tag, err))
		}
	}
	return &Schema{
		fields:   fields,
		validate: v,
	}
}

// customRules はvalidatorに追加登録するタグ。
var customRules = map[string]validator.Func{
	// maxbytes=N はUTF-8でのバイト長の上限。bcryptのように文字数ではなくバイト数で制限される値に使う。
	"maxbytes": func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	},
	"haslower":  containsRune(unicode.IsLower),
	"hasupper":  containsRune(unicode.IsUpper),
	"hasdigit":  containsRune(unicode.IsDigit),
	"hassymbol": containsRune(func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSymbol(r) }),
}

func containsRune(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

// Parse は入力値を検証し、正規化済みの値を返す。
// 失敗時はKindBadRequestの*model.APIErrorを返す。メッセージは最初の失敗フィールドのもののみ。
func (s *Schema) Parse(in Input) (Values, error) {
	values := make(Values, len(s.fields))

	for _, f := range s.fields {
		raw, ok := in[f.name]
		if !ok || raw == nil {
			if f.required {
				return nil, model.NewBadRequestError(f.message("required", ""))
			}
			continue
		}

		switch f.typ {
		case typeString:
			str, ok := raw.(string)
			if !ok {
				return nil, model.NewBadRequestError(f.typeMismatch())
			}
			if msg, ok := s.check(f, str); !ok {
				return nil, model.NewBadRequestError(msg)
			}
			if len(f.transforms) > 0 {
				for _, fn := range f.transforms {
					str = fn(str)
				}
				// 空白のみの値やエスケープで伸びた値をここで弾く
				if msg, ok := s.check(f, str); !ok {
					return nil, model.NewBadRequestError(msg)
				}
			}
			values[f.name] = str

		case typeInt:
			n, msg, ok := f.toInt(raw)
			if !ok {
				return nil, model.NewBadRequestError(msg)
			}
			if msg, ok := s.check(f, n); !ok {
				return nil, model.NewBadRequestError(msg)
			}
			values[f.name] = n
		}
	}

	return values, nil
}

// check はvalidatorのルールで値を検証する。
func (s *Schema) check(f *Field, value any) (string, bool) {
	if f.rules == "" {
		return "", true
	}
	err := s.validate.Var(value, f.rules)
	if err == nil {
		return "", true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return f.message(fe.Tag(), fe.Param()), false
	}
	// タグ定義の誤りなど。呼び出し側にはライブラリのエラーをそのまま見せない。
	return f.message("", ""), false
}

// toInt はJSON由来の値を整数に変換する。
// 値の表現（int64、float64、json.Number）によらず、整数かどうかとint32の範囲を同じ規則で判定する。
func (f *Field) toInt(raw any) (int, string, bool) {
	switch v := raw.(type) {
	case int:
		return f.boundInt(int64(v))
	case int32:
		return int(v), "", true
	case int64:
		return f.boundInt(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, f.message("int", ""), false
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, f.outOfRange(v > 0), false
		}
		return int(v), "", true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return f.boundInt(i)
		}
		// 2.0や2e0、int64に収まらない整数はfloat64として判定する
		fl, err := v.Float64()
		if errors.Is(err, strconv.ErrRange) {
			return 0, f.outOfRange(!strings.HasPrefix(string(v), "-")), false
		}
		if err != nil {
			return 0, f.typeMismatch(), false
		}
		return f.toInt(fl)
	default:
		return 0, f.typeMismatch(), false
	}
}

func (f *Field) boundInt(n int64) (int, string, bool) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, f.outOfRange(n > 0), false
	}
	return int(n), "", true
}

// outOfRange はint32の範囲外の値に対するメッセージを返す。
// フィールドにmax・minの宣言があればその値を、なければint32の上限・下限を示す。
func (f *Field) outOfRange(positive bool) string {
	tag, limit := "min", fmt.Sprint(math.MinInt32)
	if positive {
		tag, limit = "max", fmt.Sprint(math.MaxInt32)
	}
	if p, ok := f.ruleParam(tag); ok {
		limit = p
	}
	return f.message(tag, limit)
}

// ruleParam は"max=100"のようなルールのパラメータを返す。
func (f *Field) ruleParam(tag string) (string, bool) {
	for _, r := range strings.Split(f.rules, ",") {
		if p, ok := strings.CutPrefix(r, tag+"="); ok {
			return p, true
		}
	}
	return "", false
}

func (f *Field) typeMismatch() string {
	if f.typeMessage != "" {
		return f.typeMessage
	}
	if f.typ == typeInt {
		return fmt.Sprintf("%sは数値で入力してください。", f.name)
	}
	return fmt.Sprintf("%sは文字列で入力してください。", f.name)
}

// message はタグに対応するメッセージを返す。上書きがなければ既定の文言を使う。
func (f *Field) message(tag, param string) string {
	if msg, ok := f.messages[tag]; ok {
		return msg
	}

	switch tag {
	case "required":
		return fmt.Sprintf("%sは必須です。", f.name)
	case "int":
		return fmt.Sprintf("%sは整数で入力してください。", f.name)
	case "email":
		return fmt.Sprintf("%sの形式が正しくありません。", f.name)
	case "max", "lte":
		if f.typ == typeString {
			return fmt.Sprintf("%sは%s文字以内で入力してください。", f.name, param)
		}
		return fmt.Sprintf("%sは%s以下で入力してください。", f.name, param)
	case "min", "gte":
		if f.typ == typeString {
			return fmt.Sprintf("%sは%s文字以上で入力してください。", f.name, param)
		}
		return fmt.Sprintf("%sは%s以上で入力してください。", f.name, param)
	case "maxbytes":
		return fmt.Sprintf("%sは%sバイト以内で入力してください。", f.name, param)
	case "haslower":
		return fmt.Sprintf("%sには英小文字を1文字以上含めてください。", f.name)
	case "hasupper":
		return fmt.Sprintf("%sには英大文字を1文字以上含めてください。", f.name)
	case "hasdigit":
		return fmt.Sprintf("%sには数字を1文字以上含めてください。", f.name)
	case "hassymbol":
		return fmt.Sprintf("%sには記号を1文字以上含めてください。", f.name)
	case "oneof":
		return fmt.Sprintf("%sは次のいずれかを指定してください: %s", f.name, param)
	default:
		return fmt.Sprintf("%sの値が不正です。", f.name)
	}
}

// Values は検証済みの値。
type Values map[string]any

// String は文字列フィールドの値を返す。未設定の場合は空文字。
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Int は整数フィールドの値を返す。未設定の場合は0。
func (v Values) Int(name string) int {
	n, _ := v[name].(int)
	return n
}

// Has はフィールドに値が設定されているかを返す。
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}
