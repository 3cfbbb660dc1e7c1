package classmap

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/dberr"
	"github.com/roach88/strata/internal/native"
	"github.com/roach88/strata/internal/schema"
	"github.com/roach88/strata/internal/testutil"
	"github.com/roach88/strata/internal/value"
)

func build(t *testing.T) (*native.DB, *ClassMap) {
	t.Helper()
	s, err := schema.Normalize(testutil.TaskSchema())
	require.NoError(t, err)
	db, err := native.Open(native.Options{InMemory: true, Schema: s})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cm, err := Build(db, db.Schema())
	require.NoError(t, err)
	return db, cm
}

// write runs fn inside a committed transaction.
func write(t *testing.T, db *native.DB, fn func()) {
	t.Helper()
	require.NoError(t, db.BeginTransaction())
	fn()
	require.NoError(t, db.CommitTransaction())
}

func create(t *testing.T, cm *ClassMap, class string, values map[string]value.Value) *Object {
	t.Helper()
	e, err := cm.Helpers(class)
	require.NoError(t, err)
	p, err := e.Prepare(values)
	require.NoError(t, err)
	obj, err := p.Create()
	require.NoError(t, err)
	return obj
}

type Person struct{}

type named struct{}

func (named) ClassName() string { return "Note" }

func TestHelpers_Identities(t *testing.T) {
	_, cm := build(t)
	assert.Equal(t, testutil.TaskClasses, cm.Names())

	for name, id := range map[string]any{
		"name":         "Task",
		"Named":        named{},
		"reflect.Type": reflect.TypeOf(Person{}),
		"value":        &Person{},
	} {
		t.Run(name, func(t *testing.T) {
			e, err := cm.Helpers(id)
			require.NoError(t, err)
			assert.NotEmpty(t, e.Name())
		})
	}

	_, err := cm.Helpers("Ghost")
	var re *dberr.ReferenceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "Ghost", re.Class)
}

func TestHelpers_Invalidated(t *testing.T) {
	_, cm := build(t)
	cm.Invalidate()
	assert.False(t, cm.Valid())
	_, err := cm.Helpers("Task")
	assert.True(t, dberr.IsStateError(err))
	_, err = cm.Table("Task")
	assert.True(t, dberr.IsStateError(err))
}

func TestPrepare_RejectsBeforeWriting(t *testing.T) {
	db, cm := build(t)
	tasks, _ := cm.Helpers("Task")

	t.Run("unknown property", func(t *testing.T) {
		_, err := tasks.Prepare(map[string]value.Value{"_id": value.NewObjectID(), "colour": value.String("red")})
		assert.True(t, dberr.IsReferenceError(err))
	})
	t.Run("missing primary key", func(t *testing.T) {
		_, err := tasks.Prepare(map[string]value.Value{"description": value.String("x")})
		assert.True(t, dberr.IsTypeError(err))
	})
	t.Run("wrong type", func(t *testing.T) {
		_, err := tasks.Prepare(map[string]value.Value{"_id": value.NewObjectID(), "isComplete": value.String("yes")})
		assert.True(t, dberr.IsTypeError(err))
	})
	t.Run("set property", func(t *testing.T) {
		_, err := tasks.Prepare(map[string]value.Value{"_id": value.NewObjectID(), "tags": List{Values: []value.Value{value.String("a")}}})
		assert.ErrorIs(t, err, dberr.ErrNotSupported)
	})

	n, err := tasks.Table.Size()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, db.InTransaction())
}

func TestCreate_DefaultsAndSkips(t *testing.T) {
	db, cm := build(t)
	ids := testutil.NewDeterministicIDs()
	id := ids.ObjectID()

	var task *Object
	write(t, db, func() {
		task = create(t, cm, "Task", map[string]value.Value{
			"_id":         id,
			"description": value.Null{},
			"priority":    value.Undefined{},
		})
	})

	got, err := task.ToMap()
	require.NoError(t, err)
	assert.Equal(t, map[string]value.Value{
		"_id":         id,
		"description": value.String(""),
		"isComplete":  value.Bool(false),
		"priority":    value.Null{},
		"owner":       value.Null{},
	}, got)

	pk, err := task.PrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, id, pk)
}

func TestObject_SetAndGet(t *testing.T) {
	db, cm := build(t)
	var task *Object
	write(t, db, func() {
		task = create(t, cm, "Task", map[string]value.Value{"_id": value.NewObjectID()})
	})

	err := task.Set("description", value.String("outside"))
	assert.True(t, dberr.IsStateError(err), "write outside a transaction: %v", err)

	write(t, db, func() {
		require.NoError(t, task.Set("description", value.String("Write tests")))
		require.NoError(t, task.Set("priority", value.Int(3)))
		assert.True(t, dberr.IsTypeError(task.Set("isComplete", value.Null{})))
		assert.True(t, dberr.IsStateError(task.Set("_id", value.NewObjectID())))
		assert.True(t, dberr.IsReferenceError(task.Set("nope", value.Int(1))))
	})

	v, err := task.Get("description")
	require.NoError(t, err)
	assert.Equal(t, value.String("Write tests"), v)
	v, err = task.Get("priority")
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), v)

	_, err = task.Get("subtasks")
	assert.ErrorIs(t, err, dberr.ErrNotSupported)
}

func TestObject_PrimaryKeyWithoutOne(t *testing.T) {
	db, cm := build(t)
	var person *Object
	write(t, db, func() {
		person = create(t, cm, "Person", map[string]value.Value{"name": value.String("Ann")})
	})
	_, err := person.PrimaryKey()
	assert.True(t, dberr.IsSchemaError(err))
}

func TestObject_LinksAndEmbedded(t *testing.T) {
	db, cm := build(t)
	var person, task *Object
	write(t, db, func() {
		person = create(t, cm, "Person", map[string]value.Value{
			"name":    value.String("Ann"),
			"address": value.Dict{"street": value.String("1 Main St"), "city": value.String("Springfield")},
		})
		task = create(t, cm, "Task", map[string]value.Value{
			"_id":   value.NewObjectID(),
			"owner": person,
		})
	})

	owner, err := task.Get("owner")
	require.NoError(t, err)
	require.IsType(t, &Object{}, owner)
	assert.True(t, owner.(*Object).Equal(person))

	addr, err := person.Get("address")
	require.NoError(t, err)
	city, err := addr.(*Object).Get("city")
	require.NoError(t, err)
	assert.Equal(t, value.String("Springfield"), city)

	// A wrapper of the wrong class is a type error.
	write(t, db, func() {
		assert.True(t, dberr.IsTypeError(task.Set("owner", task)))
	})

	// Deleting the owner leaves a null link.
	write(t, db, func() { require.NoError(t, person.Native().Remove()) })
	assert.False(t, person.IsValid())
	owner, err = task.Get("owner")
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, owner)

	_, err = person.Get("name")
	assert.True(t, dberr.IsStateError(err))
}

func TestObject_ListAppend(t *testing.T) {
	db, cm := build(t)
	var parent, a, b *Object
	write(t, db, func() {
		a = create(t, cm, "Task", map[string]value.Value{"_id": value.NewObjectID(), "description": value.String("a")})
		b = create(t, cm, "Task", map[string]value.Value{"_id": value.NewObjectID(), "description": value.String("b")})
		parent = create(t, cm, "Task", map[string]value.Value{
			"_id":      value.NewObjectID(),
			"subtasks": List{Values: []value.Value{a}},
		})
	})

	write(t, db, func() {
		require.NoError(t, parent.Append("subtasks", b))
		// One bad item rejects the whole call.
		assert.True(t, dberr.IsTypeError(parent.Append("subtasks", a, value.Int(1))))
	})

	subtasks, err := parent.List("subtasks")
	require.NoError(t, err)
	all, err := subtasks.Snapshot()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Equal(a))
	assert.True(t, all[1].Equal(b))

	_, err = parent.List("tags")
	assert.ErrorIs(t, err, dberr.ErrNotSupported)
}

func TestObject_ListRemoveAndClear(t *testing.T) {
	db, cm := build(t)
	var parent, a, b, c *Object
	write(t, db, func() {
		a = create(t, cm, "Task", map[string]value.Value{"_id": value.NewObjectID()})
		b = create(t, cm, "Task", map[string]value.Value{"_id": value.NewObjectID()})
		c = create(t, cm, "Task", map[string]value.Value{"_id": value.NewObjectID()})
		parent = create(t, cm, "Task", map[string]value.Value{
			"_id":      value.NewObjectID(),
			"subtasks": List{Values: []value.Value{a, b, c}},
		})
	})

	assert.True(t, dberr.IsStateError(parent.RemoveAt("subtasks", 0)), "outside a transaction")

	write(t, db, func() {
		require.NoError(t, parent.RemoveAt("subtasks", 1))
		assert.Error(t, parent.RemoveAt("subtasks", 5))
		assert.ErrorIs(t, parent.RemoveAt("tags", 0), dberr.ErrNotSupported)
		assert.True(t, dberr.IsReferenceError(parent.ClearList("nope")))
	})

	subtasks, err := parent.List("subtasks")
	require.NoError(t, err)
	all, err := subtasks.Snapshot()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Equal(a))
	assert.True(t, all[1].Equal(c))
	assert.True(t, b.IsValid(), "removing a link keeps the target")

	write(t, db, func() { require.NoError(t, parent.ClearList("subtasks")) })
	n, err := subtasks.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.True(t, a.IsValid())
}

func TestObject_EmbeddedHasOneParent(t *testing.T) {
	db, cm := build(t)
	var ann, bob *Object
	write(t, db, func() {
		ann = create(t, cm, "Person", map[string]value.Value{
			"name":    value.String("Ann"),
			"address": value.Dict{"street": value.String("1 Main St"), "city": value.String("Springfield")},
		})
		bob = create(t, cm, "Person", map[string]value.Value{"name": value.String("Bob")})
	})
	addr, err := ann.Get("address")
	require.NoError(t, err)

	write(t, db, func() {
		assert.True(t, dberr.IsTypeError(bob.Set("address", addr)))
		people, _ := cm.Helpers("Person")
		_, err := people.Prepare(map[string]value.Value{"address": addr})
		assert.True(t, dberr.IsTypeError(err))
	})

	got, err := bob.Get("address")
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, got)

	// Deleting the first parent still takes the embedded object with it.
	write(t, db, func() { require.NoError(t, ann.Native().Remove()) })
	assert.False(t, addr.(*Object).IsValid())
}

func TestObject_MixedLinkToDeletedRow(t *testing.T) {
	db, cm := build(t)
	var note, task *Object
	write(t, db, func() {
		task = create(t, cm, "Task", map[string]value.Value{"_id": value.NewObjectID()})
		note = create(t, cm, "Note", map[string]value.Value{"id": value.Int(1), "body": task})
	})

	body, err := note.Get("body")
	require.NoError(t, err)
	assert.True(t, body.(*Object).Equal(task))

	write(t, db, func() { require.NoError(t, task.Native().Remove()) })

	body, err = note.Get("body")
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, body)

	got, err := note.ToMap()
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, got["body"])
}

func TestEntry_ResultsAreLive(t *testing.T) {
	db, cm := build(t)
	notes, _ := cm.Helpers("Note")
	results := notes.Results()

	n, err := results.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	write(t, db, func() {
		for i, score := range []float64{2.5, 1.5} {
			create(t, cm, "Note", map[string]value.Value{
				"id":    value.Int(i + 1),
				"body":  value.String("hello"),
				"score": value.Double(score),
			})
		}
	})

	sorted, err := results.Sorted("score", true)
	require.NoError(t, err)
	first, err := sorted.At(0)
	require.NoError(t, err)
	id, err := first.PrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), id)

	body, err := first.Get("body")
	require.NoError(t, err)
	assert.Equal(t, value.String("hello"), body)
}

func TestObject_ClosedDatabase(t *testing.T) {
	db, cm := build(t)
	var note *Object
	write(t, db, func() {
		note = create(t, cm, "Note", map[string]value.Value{"id": value.Int(1)})
	})
	require.NoError(t, db.Close())

	assert.False(t, note.IsValid())
	_, err := note.Get("id")
	var se *dberr.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, dberr.MsgClosed, se.Message)
}
