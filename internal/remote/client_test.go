package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"courseforge/internal/gateway"
	"courseforge/internal/gateway/gatewaytest"
	"courseforge/internal/model"
	"courseforge/internal/web"
)

func newRoundTrip(t *testing.T) (*Client, *gatewaytest.Fake) {
	t.Helper()
	fake := gatewaytest.New(model.Course{ID: "crs-1", Title: "Go"}, []model.Module{
		{ID: "mod-a", Position: 0, Lessons: []model.Lesson{
			{ID: "les-1", Title: "Intro", Position: 0, ContentType: model.ContentVideo},
			{ID: "les-2", Title: "Reading", Position: 1, ContentType: model.ContentText},
		}},
		{ID: "mod-b", Position: 1, Lessons: []model.Lesson{}},
	})
	srv := httptest.NewServer(web.NewServer(fake, web.ServerConfig{}).Handler())
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	return c, fake
}

func TestClientRoundTrip(t *testing.T) {
	c, fake := newRoundTrip(t)
	ctx := context.Background()

	st, err := c.FetchStructure(ctx, "crs-1")
	require.NoError(t, err)
	require.Equal(t, "Go", st.Course.Title)
	require.Len(t, st.Modules, 2)
	require.Len(t, st.Modules[0].Lessons, 2)

	l := st.Modules[0].Lessons[1]
	l.Title = "Reading, revised"
	l.ContentText = model.StrPtr("body")
	require.NoError(t, c.SaveLesson(ctx, l))
	require.Equal(t, "body", fake.Modules()[0].Lessons[1].Text())

	require.NoError(t, c.ReorderLessons(ctx, "mod-a", []string{"les-2", "les-1"}))
	require.NoError(t, c.ReorderModules(ctx, "crs-1", []string{"mod-b", "mod-a"}))
	require.NoError(t, c.MoveLesson(ctx, "les-1", "mod-b"))
	require.NoError(t, c.CopyLesson(ctx, model.Lesson{ID: "les-2", Title: "Copy", ContentType: model.ContentText}, "mod-b"))

	id, err := c.CreateLessonFromTemplate(ctx, "mod-b", model.LessonTemplate{ID: "reading", Title: "New", ContentType: model.ContentText})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, c.DeleteLesson(ctx, "les-2"))

	tplID, err := c.SaveStructureTemplate(ctx, "crs-1", model.StructureTemplateInput{Name: "Skeleton"})
	require.NoError(t, err)
	require.NotEmpty(t, tplID)

	after := fake.Modules()
	require.Equal(t, "mod-b", after[0].ID)
	require.Len(t, after[1].Lessons, 0)
	require.Len(t, after[0].Lessons, 3)
	for i, l := range after[0].Lessons {
		require.Equal(t, i, l.Position)
	}
}

func TestClientErrors(t *testing.T) {
	c, fake := newRoundTrip(t)
	ctx := context.Background()

	_, err := c.FetchStructure(ctx, "crs-missing")
	var ne *gateway.NetworkError
	require.True(t, errors.As(err, &ne))
	require.True(t, gateway.IsNotFound(err))

	fake.FailOn("deleteLesson", errors.New("disk full"))
	err = c.DeleteLesson(ctx, "les-1")
	require.Error(t, err)
	require.False(t, gateway.IsNotFound(err))
	require.Contains(t, err.Error(), "http 500")

	err = c.MoveLesson(ctx, "les-1", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "http 400")
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, Options{})
	require.NoError(t, err)
	err = c.DeleteLesson(context.Background(), "les-1")
	var ne *gateway.NetworkError
	require.True(t, errors.As(err, &ne))
	require.Equal(t, "deleteLesson", ne.Op)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url", Options{})
	require.Error(t, err)
}
