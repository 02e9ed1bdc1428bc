package notify

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUrgencyHintByte(t *testing.T) {
	for u, want := range map[Urgency]byte{
		UrgencyLow:      0,
		UrgencyNormal:   1,
		UrgencyCritical: 2,
	} {
		hints, err := EncodeHints(map[string]HintValue{HintKeyUrgency: HintUrgency(u).Value})
		require.NoError(t, err)
		v := hints[HintKeyUrgency]
		require.Equal(t, "y", v.Signature().String(), "urgency %v", u)
		require.Equal(t, want, v.Value(), "urgency %v", u)
	}
}

func TestEncodeStandardHintSignatures(t *testing.T) {
	tests := []struct {
		hint Hint
		sig  string
	}{
		{HintUrgency(UrgencyCritical), "y"},
		{HintCategory("device.added"), "s"},
		{HintDesktopEntry("org.example.App"), "s"},
		{HintImageFilePath("/tmp/a.png"), "s"},
		{HintImageData(ImageData{Width: 1, Height: 1, RowStride: 4, HasAlpha: true, BitsPerSample: 8, Channels: 4, Data: []byte{1, 2, 3, 4}}), "(iiibiiay)"},
		{HintSoundWithFile("/usr/share/sounds/bell.oga"), "s"},
		{HintSoundWithName("message-new-instant"), "s"},
		{HintSuppressSound(true), "b"},
		{HintTransient(true), "b"},
		{HintActionIcons(false), "b"},
		{HintResident(true), "b"},
		{HintX(10), "i"},
		{HintY(-3), "i"},
	}
	for _, tt := range tests {
		t.Run(tt.hint.ID, func(t *testing.T) {
			hints, err := EncodeHints(map[string]HintValue{tt.hint.ID: tt.hint.Value})
			require.NoError(t, err)
			require.Contains(t, hints, tt.hint.ID)
			require.Equal(t, tt.sig, hints[tt.hint.ID].Signature().String())
		})
	}
}

func TestEncodeHintsRejectsIncompatibleTypes(t *testing.T) {
	tests := []struct {
		key   string
		value HintValue
	}{
		{HintKeyUrgency, StringValue("critical")},
		{HintKeyUrgency, Int32Value(2)},
		{HintKeyCategory, BoolValue(true)},
		{HintKeyX, Uint32Value(3)},
		{HintKeyImageData, BytesValue([]byte{1, 2})},
		{HintKeyTransient, ByteValue(1)},
		{"x-custom", HintValue{}},
		{HintKeySoundName, StringValue("bell\xff")},
		{"x-origin", StringValue("\xfe")},
	}
	for _, tt := range tests {
		t.Run(tt.key+"/"+tt.value.Kind().String(), func(t *testing.T) {
			hints, err := EncodeHints(map[string]HintValue{
				HintKeyCategory + "-ok": StringValue("fine"),
				tt.key:                  tt.value,
			})
			require.Nil(t, hints)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrEncoding))

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			require.Equal(t, tt.key, encErr.Key)
		})
	}
}

func TestEncodeHintsCustomPassThrough(t *testing.T) {
	hints, err := EncodeHints(map[string]HintValue{
		"x-kde-origin-name": StringValue("build bot"),
		"x-vendor-count":    Uint32Value(12),
		"x-vendor-blob":     BytesValue(nil),
		"value":             Int32Value(40),
	})
	require.NoError(t, err)
	require.Len(t, hints, 4)
	assert.Equal(t, dbus.MakeVariant("build bot"), hints["x-kde-origin-name"])
	assert.Equal(t, dbus.MakeVariant(uint32(12)), hints["x-vendor-count"])
	assert.Equal(t, dbus.MakeVariant([]byte{}), hints["x-vendor-blob"])
	assert.Equal(t, dbus.MakeVariant(int32(40)), hints["value"])
}

func TestEncodeHintsEmpty(t *testing.T) {
	hints, err := EncodeHints(nil)
	require.NoError(t, err)
	require.NotNil(t, hints, "the server expects a dict, not nothing")
	require.Empty(t, hints)
}

func TestHintRoundTrip(t *testing.T) {
	var n Notification
	n.SetUrgency(UrgencyCritical)
	n.AddHint(HintSoundWithFile("/path"))

	wire, err := EncodeHints(n.Hints)
	require.NoError(t, err)

	decoded, err := DecodeHints(wire)
	require.NoError(t, err)
	require.Equal(t, n.Hints, decoded)
	require.Equal(t, UrgencyCritical, Urgency(decoded[HintKeyUrgency].Byte()))
	require.Equal(t, "/path", decoded[HintKeySoundFile].Str())
}

func TestDecodeHintsImageFromStructFields(t *testing.T) {
	// incoming variants carry structs as their fields
	fields := []interface{}{int32(1), int32(1), int32(4), true, int32(8), int32(4), []byte{9, 9, 9, 9}}
	wire := map[string]dbus.Variant{
		HintKeyImageData: dbus.MakeVariantWithSignature(fields, dbus.ParseSignatureMust("(iiibiiay)")),
	}

	decoded, err := DecodeHints(wire)
	require.NoError(t, err)
	img := decoded[HintKeyImageData].Image()
	require.Equal(t, ImageData{Width: 1, Height: 1, RowStride: 4, HasAlpha: true, BitsPerSample: 8, Channels: 4, Data: []byte{9, 9, 9, 9}}, img)
}

func TestDecodeHintsRejects(t *testing.T) {
	_, err := DecodeHints(map[string]dbus.Variant{HintKeyUrgency: dbus.MakeVariant("high")})
	require.True(t, errors.Is(err, ErrEncoding))

	_, err = DecodeHints(map[string]dbus.Variant{"x-float": dbus.MakeVariant(1.5)})
	require.True(t, errors.Is(err, ErrEncoding))

	short := []interface{}{int32(1), int32(1)}
	_, err = DecodeHints(map[string]dbus.Variant{HintKeyImageData: dbus.MakeVariant(short)})
	require.True(t, errors.Is(err, ErrEncoding))
}

func TestHintImageDataRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	// sub images share the parent's stride, rows must be compacted
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.RGBA)
	h := HintImageDataRGBA(sub)
	require.Equal(t, HintKeyImageData, h.ID)

	data := h.Value.Image()
	require.EqualValues(t, 2, data.Width)
	require.EqualValues(t, 2, data.Height)
	require.EqualValues(t, 8, data.RowStride)
	require.True(t, data.HasAlpha)
	require.EqualValues(t, 8, data.BitsPerSample)
	require.EqualValues(t, 4, data.Channels)
	require.Len(t, data.Data, 16)
	require.Equal(t, []byte{10, 20, 30, 255}, data.Data[:4])
}

func TestHintValueAccessors(t *testing.T) {
	require.True(t, BoolValue(true).Bool())
	require.False(t, BoolValue(false).Bool())
	require.False(t, StringValue("true").Bool())
	require.Equal(t, int32(-5), Int32Value(-5).Int32())
	require.Equal(t, uint32(math.MaxUint32), Uint32Value(math.MaxUint32).Uint32())
	require.Equal(t, KindInvalid, HintValue{}.Kind())
	require.False(t, HintValue{}.IsValid())
	require.Equal(t, dbus.Variant{}, HintValue{}.Variant())
}
