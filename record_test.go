package dbf

import (
	"errors"
	"testing"
)

func TestRecordCursorReadMap(t *testing.T) {
	table := buildSampleTable(t)
	d, _ := NewDate(2022, 7, 4)
	writeSampleRecord(t, table, "Grace Hopper", 42, true, d)

	rc, err := table.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	m, err := rc.ReadMap()
	if err != nil {
		t.Fatalf("ReadMap: %v", err)
	}
	name, err := m["NAME"].AsString()
	if err != nil || name != "Grace Hopper" {
		t.Errorf("m[NAME] = %q, %v, want %q", name, err, "Grace Hopper")
	}
}

func TestMapRecordReadInto(t *testing.T) {
	table := buildSampleTable(t)
	d, _ := NewDate(2022, 7, 4)
	writeSampleRecord(t, table, "Grace Hopper", 42, true, d)

	rc, err := table.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	dest := make(MapRecord)
	if err := rc.ReadInto(dest); err != nil {
		t.Fatalf("ReadInto: %v", err)
	}
	age, err := dest["AGE"].AsFloat64()
	if err != nil || age != 42 {
		t.Errorf("dest[AGE] = %v, %v, want 42", age, err)
	}
}

func TestMapRecordWriteFrom(t *testing.T) {
	table := buildSampleTable(t)
	rc, err := table.AppendRecord()
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	name := "Margaret Hamilton"
	age := 30.0
	active := true
	d, _ := NewDate(2019, 11, 2)
	src := MapRecord{
		"NAME":   CharacterValue(&name),
		"AGE":    NumericValue(&age),
		"ACTIVE": LogicalValue(&active),
		"JOINED": DateValue(&d),
	}
	if err := rc.WriteFrom(src); err != nil {
		t.Fatalf("WriteFrom: %v", err)
	}

	values, err := rc.ReadFieldValues()
	if err != nil {
		t.Fatalf("ReadFieldValues: %v", err)
	}
	got, _ := values[0].AsString()
	if got != name {
		t.Errorf("NAME = %q, want %q", got, name)
	}
}

func TestMapRecordWriteFromMissingFieldErrors(t *testing.T) {
	table := buildSampleTable(t)
	rc, err := table.AppendRecord()
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	src := MapRecord{"NAME": CharacterValue(strptr("incomplete"))}
	if err := rc.WriteFrom(src); !errors.Is(err, ErrNotEnoughFields) {
		t.Errorf("WriteFrom() err = %v, want ErrNotEnoughFields", err)
	}
}

func strptr(s string) *string { return &s }

type person struct {
	Name   string  `dbf:"NAME"`
	Age    float64 `dbf:"AGE"`
	Active bool    `dbf:"ACTIVE"`
	Joined Date    `dbf:"JOINED"`

	ignore string // unexported, structBinding must skip it
}

func TestReadStructAndWriteStruct(t *testing.T) {
	table := buildSampleTable(t)
	rc, err := table.AppendRecord()
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	joined, _ := NewDate(2015, 5, 20)
	src := person{Name: "Katherine Johnson", Age: 33, Active: true, Joined: joined}
	if err := rc.WriteStruct(&src); err != nil {
		t.Fatalf("WriteStruct: %v", err)
	}

	var dest person
	if err := rc.ReadStruct(&dest); err != nil {
		t.Fatalf("ReadStruct: %v", err)
	}
	if dest.Name != src.Name {
		t.Errorf("Name = %q, want %q", dest.Name, src.Name)
	}
	if dest.Age != src.Age {
		t.Errorf("Age = %v, want %v", dest.Age, src.Age)
	}
	if dest.Active != src.Active {
		t.Errorf("Active = %v, want %v", dest.Active, src.Active)
	}
	if dest.Joined != src.Joined {
		t.Errorf("Joined = %+v, want %+v", dest.Joined, src.Joined)
	}
}

func TestFieldIteratorExactCount(t *testing.T) {
	table := buildSampleTable(t)
	d, _ := NewDate(2020, 1, 1)
	writeSampleRecord(t, table, "x", 1, true, d)

	rc, err := table.Record(0)
	if err != nil {
		t.Fatalf("Record(0): %v", err)
	}
	values, err := rc.ReadFieldValues()
	if err != nil {
		t.Fatalf("ReadFieldValues: %v", err)
	}
	it := newFieldIterator(rc, values)
	count := 0
	for !it.Done() {
		if _, _, err := it.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
		count++
	}
	if count != len(table.fields) {
		t.Errorf("consumed %d fields, want %d", count, len(table.fields))
	}
	if _, _, err := it.Next(); err != ErrEndOfRecord {
		t.Errorf("Next() past Done err = %v, want ErrEndOfRecord", err)
	}
}
