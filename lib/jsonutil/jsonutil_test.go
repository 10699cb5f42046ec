package jsonutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteASCII(t *testing.T) {
	var out bytes.Buffer
	err := WriteASCII(&out, []map[string]string{{"course_name": "計算機概論 <A&B>"}})
	require.NoError(t, err)
	require.Equal(t, `[{"course_name": "\u8a08\u7b97\u6a5f\u6982\u8ad6 <A&B>"}]`+"\n", out.String())

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Equal(t, "計算機概論 <A&B>", decoded[0]["course_name"])
}

func TestWriteASCIISurrogatePairs(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteASCII(&out, "𠀋"))
	require.Equal(t, `"\ud840\udc0b"`+"\n", out.String())
}

func TestWriteASCIIEscapesDel(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteASCII(&out, "a\x7fb~"))
	require.Equal(t, `"a\u007fb~"`+"\n", out.String())
}

func TestWriteUnicode(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteUnicode(&out, map[string]string{"error": "登入失敗"}))
	require.Equal(t, `{"error": "登入失敗"}`+"\n", out.String())
}

func TestWriteEmptySlice(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteASCII(&out, []string{}))
	require.Equal(t, "[]\n", out.String())
}

func TestSpaced(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`[]`, `[]`},
		{`{}`, `{}`},
		{`[1,2,3]`, `[1, 2, 3]`},
		{`{"a":1,"b":[true,null]}`, `{"a": 1, "b": [true, null]}`},
		{`{"k":"x, y: z"}`, `{"k": "x, y: z"}`},
		{`{"k":"say \"a,b\":c","n":"\\"}`, `{"k": "say \"a,b\":c", "n": "\\"}`},
	}
	for _, c := range cases {
		require.Equal(t, c.want, string(Spaced([]byte(c.in))), c.in)
	}
}
