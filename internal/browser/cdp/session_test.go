// internal/browser/cdp/session_test.go
package cdp

import (
	"context"
	"errors"
	"testing"

	cdproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/svccheck/internal/browser"
)

// fakeTarget answers the DevTools commands issued by callOnNode.
type fakeTarget struct {
	methods    []string
	call       *runtime.CallFunctionOnParams
	released   runtime.RemoteObjectID
	value      string
	resolveErr error
	exception  *runtime.ExceptionDetails
}

func (f *fakeTarget) Execute(_ context.Context, method string, params, res any) error {
	f.methods = append(f.methods, method)
	switch method {
	case dom.CommandResolveNode:
		if f.resolveErr != nil {
			return f.resolveErr
		}
		res.(*dom.ResolveNodeReturns).Object = &runtime.RemoteObject{ObjectID: "node-object-1"}
	case runtime.CommandCallFunctionOn:
		f.call = params.(*runtime.CallFunctionOnParams)
		out := res.(*runtime.CallFunctionOnReturns)
		out.Result = &runtime.RemoteObject{Type: "object", Value: []byte(f.value)}
		out.ExceptionDetails = f.exception
	case runtime.CommandReleaseObject:
		f.released = params.(*runtime.ReleaseObjectParams).ObjectID
	}
	return nil
}

func TestCallOnNode(t *testing.T) {
	node := &cdproto.Node{NodeID: 42}

	t.Run("BindsResolvedObject", func(t *testing.T) {
		target := &fakeTarget{value: `{"present":true,"value":"keyword"}`}
		ctx := cdproto.WithExecutor(context.Background(), target)

		var res struct {
			Present bool   `json:"present"`
			Value   string `json:"value"`
		}
		require.NoError(t, callOnNode(ctx, node, jsAttribute, &res, "id"))

		assert.Equal(t, []string{dom.CommandResolveNode, runtime.CommandCallFunctionOn, runtime.CommandReleaseObject}, target.methods)
		require.NotNil(t, target.call)
		assert.Equal(t, runtime.RemoteObjectID("node-object-1"), target.call.ObjectID)
		assert.Equal(t, jsAttribute, target.call.FunctionDeclaration)
		require.Len(t, target.call.Arguments, 1)
		assert.JSONEq(t, `"id"`, string(target.call.Arguments[0].Value))
		assert.True(t, res.Present)
		assert.Equal(t, "keyword", res.Value)
		assert.Equal(t, runtime.RemoteObjectID("node-object-1"), target.released)
	})

	t.Run("NilResult", func(t *testing.T) {
		target := &fakeTarget{value: `null`}
		ctx := cdproto.WithExecutor(context.Background(), target)
		assert.NoError(t, callOnNode(ctx, node, jsClick, nil))
	})

	t.Run("ResolveFailure", func(t *testing.T) {
		target := &fakeTarget{resolveErr: errors.New("no node with given id")}
		ctx := cdproto.WithExecutor(context.Background(), target)

		err := callOnNode(ctx, node, jsClick, nil)
		assert.ErrorIs(t, err, target.resolveErr)
		assert.Equal(t, []string{dom.CommandResolveNode}, target.methods)
	})

	t.Run("ExceptionStillReleases", func(t *testing.T) {
		target := &fakeTarget{value: `null`, exception: &runtime.ExceptionDetails{Text: "Uncaught TypeError"}}
		ctx := cdproto.WithExecutor(context.Background(), target)

		var ok bool
		assert.Error(t, callOnNode(ctx, node, jsSubmitForm, &ok))
		assert.Equal(t, runtime.RemoteObjectID("node-object-1"), target.released)
	})
}

func TestSessionWithoutTarget(t *testing.T) {
	// A context that was never attached to a tab reaches every action path and
	// fails in chromedp.Run, so each wrapper must surface the chromedp error.
	canceled := false
	s := newSession(context.Background(), func() { canceled = true }, zaptest.NewLogger(t))
	el := &element{session: s, node: &cdproto.Node{NodeID: 7}}
	ctx := context.Background()

	_, err := el.Visible(ctx)
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	_, err = el.Enabled(ctx)
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	_, err = el.Text(ctx)
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	_, _, err = el.Attribute(ctx, "name")
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	assert.ErrorIs(t, el.Click(ctx), chromedp.ErrInvalidContext)
	assert.ErrorIs(t, el.ClickScript(ctx), chromedp.ErrInvalidContext)
	assert.ErrorIs(t, el.Clear(ctx), chromedp.ErrInvalidContext)
	assert.ErrorIs(t, el.Type(ctx, "세종대로 110"), chromedp.ErrInvalidContext)
	assert.ErrorIs(t, el.SetValueScript(ctx, "세종대로 110"), chromedp.ErrInvalidContext)
	assert.ErrorIs(t, el.PressEnter(ctx), chromedp.ErrInvalidContext)
	assert.ErrorIs(t, el.SubmitForm(ctx), chromedp.ErrInvalidContext)

	_, err = s.QueryAll(ctx, "input")
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	_, err = s.Frames(ctx)
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	_, err = s.EnterFrame(ctx, &frame{node: &cdproto.Node{NodeID: 9}})
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	_, err = s.BodyText(ctx)
	assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	assert.Nil(t, s.scopeRoot(), "a failed frame entry leaves the scope untouched")

	t.Run("Close", func(t *testing.T) {
		assert.ErrorIs(t, s.Close(ctx), chromedp.ErrInvalidContext)
		assert.True(t, canceled, "the tab context is released even when close fails")
		assert.NoError(t, s.Close(ctx))

		_, err := el.Visible(ctx)
		assert.ErrorIs(t, err, browser.ErrSessionClosed)
	})
}
