package http

import (
	"errors"
	"reflect"
	"testing"

	natsadapter "github.com/samirrijal/poigeo/internal/adapters/nats"
)

type fakeBroker struct {
	active map[string]int
	fail   bool
}

func (b *fakeBroker) subscribe(subject string) (func() error, error) {
	if b.fail {
		return nil, errors.New("nats down")
	}
	b.active[subject]++
	return func() error {
		b.active[subject]--
		if b.active[subject] == 0 {
			delete(b.active, subject)
		}
		return nil
	}, nil
}

func TestWSSubscriptions_TableReplacesWildcard(t *testing.T) {
	broker := &fakeBroker{active: map[string]int{}}
	subs := newWSSubscriptions(broker.subscribe)

	if _, err := subs.add(natsadapter.SchemaSubjectAll); err != nil {
		t.Fatal(err)
	}
	if added, err := subs.add("poi.schema.poi"); err != nil || !added {
		t.Fatalf("subscribe poi: added=%v err=%v", added, err)
	}

	want := map[string]int{"poi.schema.poi": 1}
	if !reflect.DeepEqual(broker.active, want) {
		t.Errorf("expected only the table subject to stay active, got %v", broker.active)
	}

	if _, err := subs.add("poi.schema.shops"); err != nil {
		t.Fatal(err)
	}
	if got := subs.subjects(); !reflect.DeepEqual(got, []string{"poi.schema.poi", "poi.schema.shops"}) {
		t.Errorf("unexpected subjects %v", got)
	}
}

func TestWSSubscriptions_WildcardReplacesTables(t *testing.T) {
	broker := &fakeBroker{active: map[string]int{}}
	subs := newWSSubscriptions(broker.subscribe)

	_, _ = subs.add("poi.schema.poi")
	_, _ = subs.add("poi.schema.shops")
	if _, err := subs.add(natsadapter.SchemaSubjectAll); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(broker.active, map[string]int{natsadapter.SchemaSubjectAll: 1}) {
		t.Errorf("expected only the wildcard to stay active, got %v", broker.active)
	}
}

func TestWSSubscriptions_DuplicateAndRemove(t *testing.T) {
	broker := &fakeBroker{active: map[string]int{}}
	subs := newWSSubscriptions(broker.subscribe)

	_, _ = subs.add("poi.schema.poi")
	if added, _ := subs.add("poi.schema.poi"); added {
		t.Error("second subscribe to the same subject should be a no-op")
	}
	if broker.active["poi.schema.poi"] != 1 {
		t.Errorf("expected one broker subscription, got %d", broker.active["poi.schema.poi"])
	}

	if !subs.remove("poi.schema.poi") {
		t.Error("expected remove to report the subscription")
	}
	if subs.remove("poi.schema.poi") {
		t.Error("expected second remove to report nothing")
	}
	if len(broker.active) != 0 {
		t.Errorf("expected no active subscriptions, got %v", broker.active)
	}
}

func TestWSSubscriptions_FailedSubscribeKeepsExisting(t *testing.T) {
	broker := &fakeBroker{active: map[string]int{}}
	subs := newWSSubscriptions(broker.subscribe)
	_, _ = subs.add(natsadapter.SchemaSubjectAll)

	broker.fail = true
	if _, err := subs.add("poi.schema.poi"); err == nil {
		t.Fatal("expected subscribe error")
	}
	if !reflect.DeepEqual(subs.subjects(), []string{natsadapter.SchemaSubjectAll}) {
		t.Errorf("wildcard should survive a failed narrow, got %v", subs.subjects())
	}
}

func TestWSSubscriptions_Close(t *testing.T) {
	broker := &fakeBroker{active: map[string]int{}}
	subs := newWSSubscriptions(broker.subscribe)
	_, _ = subs.add("poi.schema.poi")
	_, _ = subs.add("poi.schema.shops")

	subs.close()
	if len(broker.active) != 0 || len(subs.subjects()) != 0 {
		t.Errorf("expected everything unsubscribed, got %v", broker.active)
	}
}
