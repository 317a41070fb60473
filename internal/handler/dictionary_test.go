package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pu-ac-cn/qual-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "dict:read dict:write").AccessToken

	w := s.json(http.MethodPost, "/api/dict", token, gin.H{"key": "gender", "name": "性别"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dict := decode[model.Dictionary](t, w)
	assert.True(t, dict.Enable)
	assert.Equal(t, model.ValueText, dict.Type)

	w = s.json(http.MethodPost, "/api/dict", token, gin.H{"key": "gender2", "name": "性别"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.json(http.MethodPost, "/api/dict", token, gin.H{"key": "bad", "name": "坏类型", "type": 42})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	for _, v := range []gin.H{
		{"name": "男", "value": "1", "color": "#1890ff"},
		{"name": "女", "value": "2"},
	} {
		w = s.json(http.MethodPost, "/api/dict/gender/values", token, v)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, "/api/dict/gender/values", nil, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	values := *decode[[]model.DictionaryKeyValue](t, w)
	require.Len(t, values, 2)
	assert.Equal(t, dict.ID, values[0].ParentID)

	w = s.do(http.MethodGet, "/api/dict/gender/values/"+itoa(values[0].ID), nil, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "男", decode[model.DictionaryKeyValue](t, w).Name)

	w = s.do(http.MethodDelete, "/api/dict/gender/values/"+itoa(values[1].ID), nil, "", token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.json(http.MethodPatch, "/api/dict/gender", token, gin.H{"comment": "人员性别", "enable": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[model.Dictionary](t, w)
	assert.Equal(t, "人员性别", updated.Comment)
	assert.False(t, updated.Enable)

	w = s.do(http.MethodGet, "/api/dict", nil, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[PageResult[model.Dictionary]](t, w).Total)

	// 删除字典同时删除键值
	w = s.do(http.MethodDelete, "/api/dict/gender", nil, "", token)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(http.MethodGet, "/api/dict/gender", nil, "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, s.app.DB.Model(&model.DictionaryKeyValue{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDictionaryValuesOfMissingDictionary(t *testing.T) {
	s := newTestServer(t)
	token := s.login("admin", "all").AccessToken

	w := s.do(http.MethodGet, "/api/dict/none/values", nil, "", token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.json(http.MethodPost, "/api/dict/none/values", token, gin.H{"name": "a", "value": "b"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
