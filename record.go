package dbf

import (
	"fmt"
	"reflect"
)

// ReadableRecord is implemented by a Go type that knows how to populate
// itself from a table record's fields, read one at a time in declaration
// order. It is the typed counterpart to RecordCursor.ReadMap.
type ReadableRecord interface {
	ReadRecord(it *FieldIterator) error
}

// WritableRecord is implemented by a Go type that knows how to supply a
// table record's fields, one at a time in declaration order. It is the
// typed counterpart to RecordCursor.WriteFieldValues.
type WritableRecord interface {
	WriteRecord(w *FieldWriter) error
}

// FieldIterator drives a ReadableRecord through a record's fields one at a
// time, in declaration order. Next returns the next field's descriptor and
// value; Done reports whether every field has been consumed.
type FieldIterator struct {
	cursor *RecordCursor
	values []FieldValue
	next   int
}

func newFieldIterator(rc *RecordCursor, values []FieldValue) *FieldIterator {
	return &FieldIterator{cursor: rc, values: values}
}

// Len returns the number of fields remaining to be consumed.
func (it *FieldIterator) Len() int { return len(it.values) - it.next }

// Done reports whether every field has been consumed.
func (it *FieldIterator) Done() bool { return it.next >= len(it.values) }

// Next returns the next field's descriptor and decoded value, advancing the
// iterator, or ErrEndOfRecord if the schema is already exhausted.
func (it *FieldIterator) Next() (*FieldDescriptor, FieldValue, error) {
	if it.Done() {
		return nil, FieldValue{}, ErrEndOfRecord
	}
	fd := &it.cursor.table.fields[it.next]
	v := it.values[it.next]
	it.next++
	return fd, v, nil
}

// FieldWriter drives a WritableRecord through a record's fields one at a
// time, enforcing that the record supplies exactly as many fields as the
// schema has.
type FieldWriter struct {
	cursor *RecordCursor
	values []FieldValue
	next   int
}

func newFieldWriter(rc *RecordCursor) *FieldWriter {
	return &FieldWriter{cursor: rc, values: make([]FieldValue, len(rc.table.fields))}
}

// Len returns the number of fields remaining to be supplied.
func (w *FieldWriter) Len() int { return len(w.values) - w.next }

// Done reports whether every field has been supplied.
func (w *FieldWriter) Done() bool { return w.next >= len(w.values) }

// Field returns the descriptor for the next field to be supplied, without
// consuming it, or nil if the writer is Done.
func (w *FieldWriter) Field() *FieldDescriptor {
	if w.Done() {
		return nil
	}
	return &w.cursor.table.fields[w.next]
}

// Put supplies the next field's value, advancing the writer, or
// ErrTooManyFields if the schema is already fully supplied.
func (w *FieldWriter) Put(v FieldValue) error {
	if w.Done() {
		return ErrTooManyFields
	}
	w.values[w.next] = v
	w.next++
	return nil
}

// ReadInto decodes the record's fields and feeds them through a
// FieldIterator into dest.ReadRecord. dest may consume fewer fields than
// the schema has (the rest are left unread); asking for more fails with
// ErrEndOfRecord.
func (rc *RecordCursor) ReadInto(dest ReadableRecord) error {
	values, err := rc.ReadFieldValues()
	if err != nil {
		return err
	}
	it := newFieldIterator(rc, values)
	if err := dest.ReadRecord(it); err != nil {
		return recordErr(rc.index, nil, err)
	}
	return nil
}

// WriteFrom drives src.WriteRecord through a FieldWriter, then encodes and
// writes the resulting field values as a single whole-record write, failing
// with ErrNotEnoughFields if src supplies fewer values than the schema has
// fields.
func (rc *RecordCursor) WriteFrom(src WritableRecord) error {
	w := newFieldWriter(rc)
	if err := src.WriteRecord(w); err != nil {
		return recordErr(rc.index, nil, err)
	}
	if !w.Done() {
		return recordErr(rc.index, nil, ErrNotEnoughFields)
	}
	return rc.WriteFieldValues(w.values)
}

// MapRecord is the default ReadableRecord/WritableRecord implementation,
// backed by a field-name keyed map (the same shape RecordCursor.ReadMap
// returns), for callers who don't want to define a dedicated Go type.
type MapRecord map[string]FieldValue

// ReadRecord implements ReadableRecord by keying every field by name.
func (m MapRecord) ReadRecord(it *FieldIterator) error {
	for !it.Done() {
		fd, v, err := it.Next()
		if err != nil {
			return err
		}
		m[fd.Name] = v
	}
	return nil
}

// WriteRecord implements WritableRecord by looking up each field by name,
// failing with ErrNotEnoughFields if a field the schema expects is absent
// from the map.
func (m MapRecord) WriteRecord(w *FieldWriter) error {
	for !w.Done() {
		fd := w.Field()
		v, ok := m[fd.Name]
		if !ok {
			return ErrNotEnoughFields
		}
		if err := w.Put(v); err != nil {
			return err
		}
	}
	return nil
}

// structTag is the struct-tag key ReadStruct/WriteStruct use to bind a Go
// struct field to a dBase field name (`dbf:"NAME"`), the same idiom
// encoding/json uses for its key names. A field with no tag binds by its Go
// name; a tag of "-" skips the field.
const structTag = "dbf"

func structBinding(t reflect.Type) map[string]int {
	bindings := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		tag, ok := f.Tag.Lookup(structTag)
		if ok && tag == "-" {
			continue
		}
		name := f.Name
		if ok && tag != "" {
			name = tag
		}
		bindings[name] = i
	}
	return bindings
}

// ReadStruct decodes the record into dest, a pointer to a struct whose
// fields are bound to schema field names via `dbf:"NAME"` tags (or their Go
// name, absent a tag). It is the reflect-based alternative to implementing
// ReadableRecord by hand.
func (rc *RecordCursor) ReadStruct(dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dbf: ReadStruct requires a non-nil pointer to a struct, got %T", dest)
	}
	elem := rv.Elem()
	bindings := structBinding(elem.Type())

	values, err := rc.ReadFieldValues()
	if err != nil {
		return err
	}
	for j, fd := range rc.table.fields {
		idx, ok := bindings[fd.Name]
		if !ok {
			continue
		}
		if err := assignFieldValue(elem.Field(idx), values[j]); err != nil {
			return recordErr(rc.index, &rc.table.fields[j], err)
		}
	}
	return nil
}

// WriteStruct encodes src, a struct (or pointer to one) whose fields are
// bound to schema field names the same way ReadStruct binds them, and
// writes the resulting record. Any schema field with no bound struct field
// keeps the record's current value (the blank/zero value, for a freshly
// appended record).
func (rc *RecordCursor) WriteStruct(src interface{}) error {
	rv := reflect.ValueOf(src)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("dbf: WriteStruct requires a struct or pointer to one, got %T", src)
	}
	bindings := structBinding(rv.Type())

	values, err := rc.ReadFieldValues()
	if err != nil {
		return err
	}
	for j, fd := range rc.table.fields {
		idx, ok := bindings[fd.Name]
		if !ok {
			continue
		}
		v, err := fieldValueFromReflect(fd.Type, rv.Field(idx))
		if err != nil {
			return recordErr(rc.index, &rc.table.fields[j], err)
		}
		values[j] = v
	}
	return rc.WriteFieldValues(values)
}

// assignFieldValue stores v into rv, a settable struct field, choosing the
// conversion by rv's Go type rather than v.Kind() so callers can bind, say,
// a Numeric field to either a float64 or a *float64 struct field.
func assignFieldValue(rv reflect.Value, v FieldValue) error {
	switch rv.Interface().(type) {
	case string:
		s, err := zeroOnNull(v, func() (interface{}, error) { return v.AsString() })
		if err != nil {
			return err
		}
		rv.SetString(s.(string))
	case *string:
		if v.IsNull() {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		s, err := v.AsString()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(&s))
	case float64:
		f, err := zeroOnNull(v, func() (interface{}, error) { return v.AsFloat64() })
		if err != nil {
			return err
		}
		rv.SetFloat(f.(float64))
	case *float64:
		if v.IsNull() {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		f, err := v.AsFloat64()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(&f))
	case bool:
		b, err := zeroOnNull(v, func() (interface{}, error) { return v.AsBool() })
		if err != nil {
			return err
		}
		rv.SetBool(b.(bool))
	case *bool:
		if v.IsNull() {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(&b))
	case Date:
		d, err := zeroOnNull(v, func() (interface{}, error) { return v.AsDate() })
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(d.(Date)))
	case *Date:
		if v.IsNull() {
			rv.Set(reflect.Zero(rv.Type()))
			return nil
		}
		d, err := v.AsDate()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(&d))
	case int32:
		i, err := v.AsInt32()
		if err != nil {
			return err
		}
		rv.SetInt(int64(i))
	case DateTime:
		dt, err := v.AsDateTime()
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(dt))
	default:
		return fmt.Errorf("dbf: ReadStruct: unsupported field type %s: %w", rv.Type(), ErrIncompatibleType)
	}
	return nil
}

// zeroOnNull returns the Go zero value for get's return type when v is
// null, instead of propagating the BadConversionError its As* accessor
// would otherwise return.
func zeroOnNull(v FieldValue, get func() (interface{}, error)) (interface{}, error) {
	if v.IsNull() {
		switch v.Kind() {
		case KindCharacter:
			return "", nil
		case KindNumeric, KindFloat:
			return float64(0), nil
		case KindLogical:
			return false, nil
		case KindDate:
			return Date{}, nil
		}
	}
	return get()
}

// fieldValueFromReflect builds the FieldValue variant matching fieldType
// (the schema's type letter) from a struct field's current value.
func fieldValueFromReflect(fieldType byte, rv reflect.Value) (FieldValue, error) {
	switch fieldType {
	case 'C':
		if ptr, ok := derefString(rv); ok {
			if ptr == nil {
				return CharacterValue(nil), nil
			}
			return CharacterValue(ptr), nil
		}
		s := rv.String()
		return CharacterValue(&s), nil
	case 'M':
		if ptr, ok := derefString(rv); ok {
			if ptr == nil {
				return MemoValue(""), nil
			}
			return MemoValue(*ptr), nil
		}
		return MemoValue(rv.String()), nil
	case 'N':
		f, ok := derefFloat(rv)
		if !ok {
			return NumericValue(nil), nil
		}
		return NumericValue(f), nil
	case 'F':
		f, ok := derefFloat(rv)
		if !ok {
			return FloatValue(nil), nil
		}
		return FloatValue(f), nil
	case 'Y':
		return CurrencyValue(rv.Float()), nil
	case 'B':
		return DoubleValue(rv.Float()), nil
	case 'L':
		b, ok := derefBool(rv)
		if !ok {
			return LogicalValue(nil), nil
		}
		return LogicalValue(b), nil
	case 'D':
		d, ok := derefDate(rv)
		if !ok {
			return DateValue(nil), nil
		}
		return DateValue(d), nil
	case 'I':
		return IntegerValue(int32(rv.Int())), nil
	case 'T':
		dt, ok := rv.Interface().(DateTime)
		if !ok {
			return FieldValue{}, fmt.Errorf("dbf: WriteStruct: field type T requires a DateTime field, got %s: %w", rv.Type(), ErrIncompatibleType)
		}
		return DateTimeValue(dt), nil
	default:
		return FieldValue{}, &InvalidFieldTypeError{Type: fieldType}
	}
}

func derefString(rv reflect.Value) (*string, bool) {
	if rv.Kind() != reflect.Ptr {
		return nil, false
	}
	if rv.IsNil() {
		return nil, true
	}
	s := rv.Elem().String()
	return &s, true
}

func derefFloat(rv reflect.Value) (*float64, bool) {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, true
		}
		f := rv.Elem().Float()
		return &f, true
	}
	f := rv.Float()
	return &f, true
}

func derefBool(rv reflect.Value) (*bool, bool) {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, true
		}
		b := rv.Elem().Bool()
		return &b, true
	}
	b := rv.Bool()
	return &b, true
}

func derefDate(rv reflect.Value) (*Date, bool) {
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, true
		}
		d := rv.Elem().Interface().(Date)
		return &d, true
	}
	d := rv.Interface().(Date)
	return &d, true
}
