package feast

import (
	"testing"

	feastsdk "github.com/feast-dev/feast/sdk/go"
	"github.com/feast-dev/feast/sdk/go/protos/feast/types"
	"github.com/stretchr/testify/assert"
)

func TestToSDKValue(t *testing.T) {
	assert.Equal(t, int64(7), toSDKValue(int64(7)).GetInt64Val())
	assert.Equal(t, int64(7), toSDKValue(7).GetInt64Val())
	assert.Equal(t, "u1", toSDKValue("u1").GetStringVal())
	assert.Equal(t, 1.5, toSDKValue(1.5).GetDoubleVal())
}

func TestFromSDKValue(t *testing.T) {
	floats := &types.Value{Val: &types.Value_FloatListVal{FloatListVal: &types.FloatList{Val: []float32{1, 2}}}}
	assert.Equal(t, []float32{1, 2}, fromSDKValue(floats))

	doubles := &types.Value{Val: &types.Value_DoubleListVal{DoubleListVal: &types.DoubleList{Val: []float64{0.5}}}}
	assert.Equal(t, []float32{0.5}, fromSDKValue(doubles))

	assert.Equal(t, "x", fromSDKValue(feastsdk.StrVal("x")))
	assert.Nil(t, fromSDKValue(nil))
	assert.Nil(t, fromSDKValue(&types.Value{}))
}
