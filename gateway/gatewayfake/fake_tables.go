package gatewayfake

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-content-admin/gateway"
)

var _ gateway.Tables = (*FakeTables)(nil)

// FakeTables keeps every table in memory. Records are copied on the way in
// and out so callers never share maps with the store.
type FakeTables struct {
	tables  map[string]map[string]gateway.Record
	allowed map[string]struct{}
	fail    map[string]error // operation -> error returned by the next call
	lock    sync.RWMutex
	nowTime func() time.Time
}

// NewFakeTables creates an in-memory table store. When names are given only those tables exist.
func NewFakeTables(names ...string) *FakeTables {
	ft := &FakeTables{
		tables:  make(map[string]map[string]gateway.Record),
		fail:    make(map[string]error),
		nowTime: time.Now,
	}
	if len(names) > 0 {
		ft.allowed = make(map[string]struct{}, len(names))
		for _, n := range names {
			ft.allowed[n] = struct{}{}
		}
	}
	return ft
}

// WithNowTime replaces the clock used for created_at
func (ft *FakeTables) WithNowTime(now func() time.Time) *FakeTables {
	ft.nowTime = now
	return ft
}

// FailNext makes the next call of op ("select", "insert", "update" or "delete") return err.
func (ft *FakeTables) FailNext(op string, err error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	ft.fail[op] = err
}

func (ft *FakeTables) takeFailure(op string) error {
	err, ok := ft.fail[op]
	if ok {
		delete(ft.fail, op)
	}
	return err
}

func (ft *FakeTables) table(name string) (map[string]gateway.Record, error) {
	if ft.allowed != nil {
		if _, ok := ft.allowed[name]; !ok {
			return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownTable, name)
		}
	}
	rows, ok := ft.tables[name]
	if !ok {
		rows = make(map[string]gateway.Record)
		ft.tables[name] = rows
	}
	return rows, nil
}

func (ft *FakeTables) Select(_ context.Context, table string, q gateway.Query) (gateway.Result, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if err := ft.takeFailure("select"); err != nil {
		return gateway.Result{}, err
	}
	rows, err := ft.table(table)
	if err != nil {
		return gateway.Result{}, err
	}

	matched := make([]gateway.Record, 0, len(rows))
	for _, r := range rows {
		if matches(r, q.Filters) {
			matched = append(matched, r.Clone())
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if q.Order == nil {
			return matched[i].ID() < matched[j].ID()
		}
		c := compare(matched[i][q.Order.Column], matched[j][q.Order.Column])
		if c == 0 {
			return matched[i].ID() < matched[j].ID()
		}
		if q.Order.Ascending {
			return c < 0
		}
		return c > 0
	})

	result := gateway.Result{}
	if q.Count {
		result.Count = len(matched)
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	result.Records = matched
	return result, nil
}

func (ft *FakeTables) Insert(_ context.Context, table string, values gateway.Record) (gateway.Record, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if err := ft.takeFailure("insert"); err != nil {
		return nil, err
	}
	rows, err := ft.table(table)
	if err != nil {
		return nil, err
	}

	record := values.Clone()
	if record == nil {
		record = gateway.Record{}
	}
	if record.ID() == "" {
		record[gateway.ColumnID] = uuid.New().String()
	}
	if _, ok := record[gateway.ColumnCreatedAt]; !ok {
		record[gateway.ColumnCreatedAt] = ft.nowTime().UTC()
	}
	rows[record.ID()] = record
	return record.Clone(), nil
}

func (ft *FakeTables) Update(_ context.Context, table, id string, values gateway.Record, match ...gateway.Filter) (gateway.Record, error) {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if err := ft.takeFailure("update"); err != nil {
		return nil, err
	}
	rows, err := ft.table(table)
	if err != nil {
		return nil, err
	}

	record, ok := rows[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	if !matches(record, match) {
		return nil, gateway.ErrConflict
	}
	for k, v := range values {
		if k == gateway.ColumnID {
			continue
		}
		record[k] = v
	}
	return record.Clone(), nil
}

func (ft *FakeTables) Delete(_ context.Context, table, id string) error {
	ft.lock.Lock()
	defer ft.lock.Unlock()

	if err := ft.takeFailure("delete"); err != nil {
		return err
	}
	rows, err := ft.table(table)
	if err != nil {
		return err
	}
	if _, ok := rows[id]; !ok {
		return gateway.ErrNotFound
	}
	delete(rows, id)
	return nil
}

func (ft *FakeTables) Ping(context.Context) error {
	return nil
}

func matches(r gateway.Record, filters []gateway.Filter) bool {
	for _, f := range filters {
		if compare(r[f.Column], f.Value) != 0 {
			return false
		}
	}
	return true
}

// compare orders two column values. Times compare chronologically, everything else by its text form.
func compare(a, b any) int {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Compare(bt)
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
