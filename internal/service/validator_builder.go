package service

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/noah-isme/admin-api/internal/models"
)

// RuleKind selects how a payload value is checked and cleaned.
type RuleKind string

const (
	RuleText         RuleKind = "text"
	RuleInteger      RuleKind = "integer"
	RuleDecimal      RuleKind = "decimal"
	RuleFloat        RuleKind = "float"
	RuleBoolean      RuleKind = "boolean"
	RuleEmail        RuleKind = "email"
	RuleDate         RuleKind = "date"
	RuleTime         RuleKind = "time"
	RuleDateTime     RuleKind = "datetime"
	RuleJSON         RuleKind = "json"
	RuleRelation     RuleKind = "relation"
	RuleRelationList RuleKind = "relation_list"
	RuleFile         RuleKind = "file"
)

// Validation messages.
const (
	MsgRequired        = "This field is required."
	MsgBlank           = "This field may not be blank."
	MsgNull            = "This field may not be null."
	MsgInvalidInteger  = "A valid integer is required."
	MsgInvalidNumber   = "A valid number is required."
	MsgInvalidBoolean  = "Must be a valid boolean."
	MsgInvalidEmail    = "Enter a valid email address."
	MsgInvalidJSON     = "Value must be valid JSON."
	MsgInvalidString   = "Not a valid string."
	MsgInvalidPattern  = "Enter a valid value."
	MsgNoFile          = "No file was submitted."
	MsgEmptyList       = "This list may not be empty."
	msgMaxLength       = "Ensure this field has no more than %d characters."
	msgMinValue        = "Ensure this value is greater than or equal to %s."
	msgMaxValue        = "Ensure this value is less than or equal to %s."
	msgMaxDigits       = "Ensure that there are no more than %d digits in total."
	msgDecimalPlaces   = "Ensure that there are no more than %d decimal places."
	msgWholeDigits     = "Ensure that there are no more than %d digits before the decimal point."
	msgInvalidChoice   = "\"%v\" is not a valid choice."
	msgDateFormat      = "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	msgTimeFormat      = "Time has wrong format. Use one of these formats instead: hh:mm:ss."
	msgDateTimeFormat  = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm:ssZ."
	msgInvalidPK       = "Incorrect type. Expected pk value, received %s."
	msgInvalidPKList   = "Expected a list of items but got type \"%s\"."
	autoTimestampField = "created_at"
	autoUpdatedField   = "updated_at"
)

var payloadValidator = validator.New()

// FieldRule is the validation rule derived from one field descriptor.
type FieldRule struct {
	Field          string
	Kind           RuleKind
	Required       bool
	Nullable       bool
	SkipBlank      bool
	MaxLength      int
	MinValue       *float64
	MaxValue       *float64
	MaxDigits      int
	DecimalPlaces  int
	Pattern        *regexp.Regexp
	PatternMessage string
	Choices        []interface{}
}

// BuildFieldRules derives the rules applied to an add or edit payload. Generated fields and
// fields the schema does not require are left out.
func BuildFieldRules(descriptors models.FieldDescriptors, mode models.FormMode) []FieldRule {
	rules := make([]FieldRule, 0, len(descriptors))
	for _, fd := range descriptors {
		if skipRule(fd) || !fd.Required {
			continue
		}
		rule := RuleFor(fd, mode)
		if fd.Credential && mode == models.FormEdit {
			rule.Required = false
			rule.SkipBlank = true
		}
		rules = append(rules, rule)
	}
	return rules
}

func skipRule(fd models.FieldDescriptor) bool {
	if fd.Name == autoTimestampField || fd.Name == autoUpdatedField {
		return true
	}
	return fd.AutoCreated || fd.Identifier || !fd.Editable
}

// RuleFor converts a single descriptor into a rule, honouring the descriptor's required flag.
func RuleFor(fd models.FieldDescriptor, mode models.FormMode) FieldRule {
	rule := FieldRule{
		Field:    fd.Name,
		Kind:     ruleKind(fd.Type),
		Required: fd.Required,
		Nullable: fd.Nullable,
		MinValue: fd.MinValue,
		MaxValue: fd.MaxValue,
	}
	if fd.MaxLength != nil {
		rule.MaxLength = *fd.MaxLength
	}
	if fd.MaxDigits != nil {
		rule.MaxDigits = *fd.MaxDigits
	}
	if fd.DecimalPlaces != nil {
		rule.DecimalPlaces = *fd.DecimalPlaces
	}
	if fd.RegexPattern != "" {
		if re, err := regexp.Compile(fd.RegexPattern); err == nil {
			rule.Pattern = re
			rule.PatternMessage = fd.RegexMessage
		}
	}
	for _, c := range fd.Choices {
		rule.Choices = append(rule.Choices, c.Value)
	}
	if rule.Kind == RuleFile && mode == models.FormEdit {
		rule.Required = false
	}
	return rule
}

func ruleKind(t models.FieldType) RuleKind {
	switch {
	case t.IsInteger():
		return RuleInteger
	case t == models.FieldDecimal:
		return RuleDecimal
	case t == models.FieldFloat:
		return RuleFloat
	case t == models.FieldBoolean:
		return RuleBoolean
	case t == models.FieldEmail:
		return RuleEmail
	case t == models.FieldDate:
		return RuleDate
	case t == models.FieldTime:
		return RuleTime
	case t == models.FieldDateTime:
		return RuleDateTime
	case t == models.FieldJSON:
		return RuleJSON
	case t.IsSingleRelation():
		return RuleRelation
	case t == models.FieldManyToMany:
		return RuleRelationList
	case t.IsFile():
		return RuleFile
	}
	return RuleText
}

// ValidatePayload applies rules to payload. It returns the cleaned value of every field the
// rules cover and a message list per failing field.
func ValidatePayload(rules []FieldRule, payload map[string]interface{}) (map[string]interface{}, models.FieldErrors) {
	cleaned := make(map[string]interface{}, len(rules))
	fieldErrors := models.FieldErrors{}
	for _, rule := range rules {
		raw, present := payload[rule.Field]
		value, skip, messages := rule.Check(raw, present)
		if len(messages) > 0 {
			fieldErrors[rule.Field] = messages
			continue
		}
		if !skip {
			cleaned[rule.Field] = value
		}
	}
	if len(fieldErrors) == 0 {
		return cleaned, nil
	}
	return cleaned, fieldErrors
}

// Check validates one raw value. skip is set when the field should be left untouched.
func (r FieldRule) Check(raw interface{}, present bool) (value interface{}, skip bool, messages []string) {
	if !present || raw == nil {
		switch {
		case r.Required && r.Kind == RuleFile:
			return nil, false, []string{MsgNoFile}
		case r.Required && !present:
			return nil, false, []string{MsgRequired}
		case r.Required && !r.Nullable:
			return nil, false, []string{MsgNull}
		case !present || r.SkipBlank:
			return nil, true, nil
		}
		return nil, false, nil
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" && r.Kind != RuleRelationList {
		switch {
		case r.SkipBlank:
			return nil, true, nil
		case r.Required && r.Kind == RuleFile:
			return nil, false, []string{MsgNoFile}
		case r.Required:
			return nil, false, []string{MsgBlank}
		case r.Kind == RuleText || r.Kind == RuleEmail:
			return "", false, nil
		}
		return nil, false, nil
	}

	value, messages = r.clean(raw)
	if len(messages) > 0 {
		return nil, false, messages
	}
	if len(r.Choices) > 0 && !r.allowed(value) {
		return nil, false, []string{fmt.Sprintf(msgInvalidChoice, raw)}
	}
	return value, false, nil
}

func (r FieldRule) clean(raw interface{}) (interface{}, []string) {
	switch r.Kind {
	case RuleInteger:
		n, err := toInteger(raw)
		if err != nil {
			return nil, []string{MsgInvalidInteger}
		}
		return n, r.checkRange(float64(n))
	case RuleFloat:
		f, err := toNumber(raw)
		if err != nil {
			return nil, []string{MsgInvalidNumber}
		}
		return f, r.checkRange(f)
	case RuleDecimal:
		return r.cleanDecimal(raw)
	case RuleBoolean:
		b, err := toBoolean(raw)
		if err != nil {
			return nil, []string{MsgInvalidBoolean}
		}
		return b, nil
	case RuleDate:
		return r.cleanLayout(raw, "datetime="+DateLayout, msgDateFormat)
	case RuleTime:
		return r.cleanLayout(raw, "datetime="+TimeLayout, msgTimeFormat)
	case RuleDateTime:
		return r.cleanLayout(raw, "datetime="+DateTimeLayout, msgDateTimeFormat)
	case RuleJSON:
		if s, ok := raw.(string); ok {
			var decoded interface{}
			if !json.Valid([]byte(s)) || json.Unmarshal([]byte(s), &decoded) != nil {
				return nil, []string{MsgInvalidJSON}
			}
			return decoded, nil
		}
		return raw, nil
	case RuleRelation:
		switch v := raw.(type) {
		case string:
			return strings.TrimSpace(v), nil
		case float64, int, int64, int32:
			n, err := toInteger(v)
			if err != nil {
				return nil, []string{fmt.Sprintf(msgInvalidPK, jsonType(raw))}
			}
			return n, nil
		}
		return nil, []string{fmt.Sprintf(msgInvalidPK, jsonType(raw))}
	case RuleRelationList:
		ids, err := ParseIDList(raw)
		if err != nil {
			return nil, []string{fmt.Sprintf(msgInvalidPKList, jsonType(raw))}
		}
		if r.Required && len(ids) == 0 {
			return nil, []string{MsgEmptyList}
		}
		return ids, nil
	case RuleFile:
		s, ok := raw.(string)
		if !ok {
			return nil, []string{MsgNoFile}
		}
		return s, nil
	}
	return r.cleanText(raw)
}

func (r FieldRule) cleanText(raw interface{}) (interface{}, []string) {
	switch raw.(type) {
	case map[string]interface{}, []interface{}, bool:
		return nil, []string{MsgInvalidString}
	}
	s := strings.TrimSpace(cast.ToString(raw))
	var messages []string
	if r.MaxLength > 0 && utf8.RuneCountInString(s) > r.MaxLength {
		messages = append(messages, fmt.Sprintf(msgMaxLength, r.MaxLength))
	}
	if r.Kind == RuleEmail && payloadValidator.Var(s, "email") != nil {
		messages = append(messages, MsgInvalidEmail)
	}
	if r.Pattern != nil && !r.Pattern.MatchString(s) {
		msg := r.PatternMessage
		if msg == "" {
			msg = MsgInvalidPattern
		}
		messages = append(messages, msg)
	}
	return s, messages
}

func (r FieldRule) cleanDecimal(raw interface{}) (interface{}, []string) {
	var text string
	switch v := raw.(type) {
	case string:
		text = strings.TrimSpace(v)
	case float64:
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case int, int64, int32:
		text = cast.ToString(v)
	default:
		return nil, []string{MsgInvalidNumber}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, []string{MsgInvalidNumber}
	}
	messages := r.checkRange(f)
	if r.Pattern != nil && !r.Pattern.MatchString(text) {
		msg := r.PatternMessage
		if msg == "" {
			msg = MsgInvalidPattern
		}
		messages = append(messages, msg)
	}
	if r.MaxDigits > 0 {
		whole, frac := splitDigits(text)
		switch {
		case whole+frac > r.MaxDigits:
			messages = append(messages, fmt.Sprintf(msgMaxDigits, r.MaxDigits))
		case frac > r.DecimalPlaces:
			messages = append(messages, fmt.Sprintf(msgDecimalPlaces, r.DecimalPlaces))
		case whole > r.MaxDigits-r.DecimalPlaces:
			messages = append(messages, fmt.Sprintf(msgWholeDigits, r.MaxDigits-r.DecimalPlaces))
		}
	}
	return text, messages
}

// splitDigits counts significant digits before and after the decimal point.
func splitDigits(text string) (int, int) {
	text = strings.TrimLeft(text, "+-")
	whole, frac, _ := strings.Cut(text, ".")
	whole = strings.TrimLeft(whole, "0")
	frac = strings.TrimRight(frac, "0")
	return len(whole), len(frac)
}

func (r FieldRule) cleanLayout(raw interface{}, tag, message string) (interface{}, []string) {
	s, ok := raw.(string)
	if !ok {
		return nil, []string{message}
	}
	s = strings.TrimSpace(s)
	if payloadValidator.Var(s, tag) != nil {
		return nil, []string{message}
	}
	return s, nil
}

func (r FieldRule) checkRange(v float64) []string {
	var messages []string
	if r.MinValue != nil && v < *r.MinValue {
		messages = append(messages, fmt.Sprintf(msgMinValue, formatLimit(*r.MinValue)))
	}
	if r.MaxValue != nil && v > *r.MaxValue {
		messages = append(messages, fmt.Sprintf(msgMaxValue, formatLimit(*r.MaxValue)))
	}
	return messages
}

func (r FieldRule) allowed(value interface{}) bool {
	for _, c := range r.Choices {
		if sameValue(c, value) {
			return true
		}
	}
	return false
}

func formatLimit(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toInteger(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not integral", v)
		}
		return int64(v), nil
	case float32:
		return toInteger(float64(v))
	case bool:
		return 0, fmt.Errorf("boolean is not an integer")
	case json.Number:
		return v.Int64()
	}
	return cast.ToInt64E(raw)
}

func toNumber(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case bool:
		return 0, fmt.Errorf("boolean is not a number")
	}
	return cast.ToFloat64E(raw)
}

func toBoolean(raw interface{}) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case int64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return false, fmt.Errorf("%v is not a boolean", raw)
}

// ParseIDList accepts a delimited string such as "1,2,5" or a JSON array of ids.
func ParseIDList(raw interface{}) ([]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return []interface{}{}, nil
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case string, float64, int, int64:
				out = append(out, normalizeID(item))
			default:
				return nil, fmt.Errorf("unsupported id %v", item)
			}
		}
		return out, nil
	case []string:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeID(item))
		}
		return out, nil
	case string:
		s := strings.TrimSpace(v)
		if strings.HasPrefix(s, "[") {
			var items []interface{}
			if err := json.Unmarshal([]byte(s), &items); err != nil {
				return nil, err
			}
			return ParseIDList(items)
		}
		out := []interface{}{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, normalizeID(part))
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported id list %T", raw)
}

func normalizeID(v interface{}) interface{} {
	switch id := v.(type) {
	case float64:
		if id == math.Trunc(id) {
			return int64(id)
		}
	case int:
		return int64(id)
	case string:
		s := strings.TrimSpace(id)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return s
	}
	return v
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case bool:
		return "bool"
	case map[string]interface{}:
		return "dict"
	case []interface{}:
		return "list"
	case float64, int, int64:
		return "int"
	case string:
		return "str"
	}
	return fmt.Sprintf("%T", v)
}
