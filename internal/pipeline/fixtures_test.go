package pipeline_test

import (
	"context"
	"fmt"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
)

const (
	cumCasesScript   = `{"x":{"data":[{"name":"Cases","x":["2020-03-05","2020-03-06","2020-03-07","2020-03-08"],"y":[1,2,4,8]}]}}`
	caseStatusScript = `{"x":{"data":[
		{"name":"Active","x":["2020-03-05","2020-03-06","2020-03-07","2020-03-08"],"y":[1,2,4,7]},
		{"name":"Died","x":["2020-03-05","2020-03-06","2020-03-07","2020-03-08"],"y":[0,0,0,1]},
		{"name":"Recovered","x":["2020-03-05","2020-03-06","2020-03-07","2020-03-08"],"y":[0,0,0,0]}]}}`
	ageScript        = `{"x":{"data":[{"name":"Age group","x":["0-9"],"y":[1]}]}}`
	dailyCasesScript = `{"x":{"data":[
		{"name":"Confirmed","x":["2020-03-05","2020-03-06","2020-03-07","2020-03-08"],"y":[1,1,2,3]},
		{"name":"Probable","x":["2020-03-07","2020-03-08"],"y":[0,1]}]}}`
	regionsScript = `{"x":{"data":[
		{"name":"Calgary Zone","x":["2020-03-05","2020-03-06","2020-03-07","2020-03-08"],"y":[1,1,3,5]},
		{"name":"Edmonton Zone","x":["2020-03-06","2020-03-07","2020-03-08"],"y":[1,1,2]}]}}`
	testingScript = `{"x":{"data":[{"name":"Tests","x":["2020-03-04","2020-03-05","2020-03-06","2020-03-07","2020-03-08"],"y":[50,120,300,null,800]}]}}`
)

// fakeDocument maps element ids to their scripts.
type fakeDocument map[string][]string

func (d fakeDocument) SectionScripts(id string) ([]string, error) {
	scripts, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("%w: no element with id %q", domain.ErrSectionNotFound, id)
	}
	return scripts, nil
}

func newFakeDocument() fakeDocument {
	return fakeDocument{
		"cases":              {cumCasesScript, caseStatusScript, ageScript, dailyCasesScript},
		"geospatial":         {regionsScript},
		"laboratory-testing": {testingScript},
	}
}

type fakeExtractor struct {
	doc domain.Document
	err error
}

func (f *fakeExtractor) Extract(_ context.Context) (domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type recordingLoader struct {
	name   string
	err    error
	loaded []domain.Snapshot
	signal chan struct{}
}

func (l *recordingLoader) Name() string { return l.name }

func (l *recordingLoader) Load(_ context.Context, snap domain.Snapshot) error {
	if l.err != nil {
		return l.err
	}
	l.loaded = append(l.loaded, snap)
	if l.signal != nil {
		l.signal <- struct{}{}
	}
	return nil
}
