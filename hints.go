package notify

import (
	"fmt"
	"image"
	"sort"
	"unicode/utf8"

	"github.com/godbus/dbus/v5"
)

// Hint names defined by the Desktop Notifications Specification.
// See: https://specifications.freedesktop.org/notification-spec/latest/ar01s08.html
const (
	HintKeyActionIcons   = "action-icons"
	HintKeyCategory      = "category"
	HintKeyDesktopEntry  = "desktop-entry"
	HintKeyImageData     = "image-data"
	HintKeyImagePath     = "image-path"
	HintKeyResident      = "resident"
	HintKeySoundFile     = "sound-file"
	HintKeySoundName     = "sound-name"
	HintKeySuppressSound = "suppress-sound"
	HintKeyTransient     = "transient"
	HintKeyUrgency       = "urgency"
	HintKeyX             = "x"
	HintKeyY             = "y"

	// deprecated spellings of image-data, still read by some servers
	hintKeyImageDataOld = "image_data"
	hintKeyIconData     = "icon_data"
)

// Kind is the wire type carried by a HintValue.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindByte
	KindInt32
	KindUint32
	KindString
	KindBytes
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindByte:
		return "byte"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindString:
		return "string"
	case KindBytes:
		return "byte array"
	case KindImage:
		return "image data"
	default:
		return "invalid"
	}
}

// hintKinds is the required wire type of every standard hint.
// Hints not listed here are sent as given.
var hintKinds = map[string]Kind{
	HintKeyActionIcons:   KindBool,
	HintKeyCategory:      KindString,
	HintKeyDesktopEntry:  KindString,
	HintKeyImageData:     KindImage,
	hintKeyImageDataOld:  KindImage,
	hintKeyIconData:      KindImage,
	HintKeyImagePath:     KindString,
	HintKeyResident:      KindBool,
	HintKeySoundFile:     KindString,
	HintKeySoundName:     KindString,
	HintKeySuppressSound: KindBool,
	HintKeyTransient:     KindBool,
	HintKeyUrgency:       KindByte,
	HintKeyX:             KindInt32,
	HintKeyY:             KindInt32,
}

// ImageData is the raw image format of the image-data hint, signature (iiibiiay).
type ImageData struct {
	Width         int32
	Height        int32
	RowStride     int32
	HasAlpha      bool
	BitsPerSample int32
	Channels      int32
	Data          []byte
}

// HintValue is a typed hint value. The zero value is invalid and is
// rejected when encoding.
type HintValue struct {
	kind Kind
	num  int64
	str  string
	raw  []byte
	img  ImageData
}

func BoolValue(v bool) HintValue {
	var n int64
	if v {
		n = 1
	}
	return HintValue{kind: KindBool, num: n}
}

func ByteValue(v byte) HintValue     { return HintValue{kind: KindByte, num: int64(v)} }
func Int32Value(v int32) HintValue   { return HintValue{kind: KindInt32, num: int64(v)} }
func Uint32Value(v uint32) HintValue { return HintValue{kind: KindUint32, num: int64(v)} }
func StringValue(v string) HintValue { return HintValue{kind: KindString, str: v} }
func BytesValue(v []byte) HintValue  { return HintValue{kind: KindBytes, raw: v} }
func ImageValue(v ImageData) HintValue {
	return HintValue{kind: KindImage, img: v}
}

func (v HintValue) Kind() Kind       { return v.kind }
func (v HintValue) Bool() bool       { return v.kind == KindBool && v.num != 0 }
func (v HintValue) Byte() byte       { return byte(v.num) }
func (v HintValue) Int32() int32     { return int32(v.num) }
func (v HintValue) Uint32() uint32   { return uint32(v.num) }
func (v HintValue) Str() string      { return v.str }
func (v HintValue) Bytes() []byte    { return v.raw }
func (v HintValue) Image() ImageData { return v.img }
func (v HintValue) IsValid() bool    { return v.kind != KindInvalid }
func (v HintValue) String() string   { return fmt.Sprintf("%s(%v)", v.kind, v.Variant().Value()) }

// Variant returns the value as a D-Bus variant. An invalid value yields
// the zero Variant.
func (v HintValue) Variant() dbus.Variant {
	switch v.kind {
	case KindBool:
		return dbus.MakeVariant(v.Bool())
	case KindByte:
		return dbus.MakeVariant(v.Byte())
	case KindInt32:
		return dbus.MakeVariant(v.Int32())
	case KindUint32:
		return dbus.MakeVariant(v.Uint32())
	case KindString:
		return dbus.MakeVariant(v.str)
	case KindBytes:
		raw := v.raw
		if raw == nil {
			raw = []byte{}
		}
		return dbus.MakeVariant(raw)
	case KindImage:
		return dbus.MakeVariant(v.img)
	default:
		return dbus.Variant{}
	}
}

// Hint is a named hint value, see Notification.AddHint.
type Hint struct {
	ID    string
	Value HintValue
}

// HintUrgency sets the urgency level. Values above UrgencyCritical are sent
// as UrgencyCritical.
func HintUrgency(u Urgency) Hint {
	return Hint{ID: HintKeyUrgency, Value: ByteValue(byte(u.clamp()))}
}

// HintCategory sets the type of notification, e.g. "email.arrived".
func HintCategory(category string) Hint {
	return Hint{ID: HintKeyCategory, Value: StringValue(category)}
}

// HintDesktopEntry sets the name of the desktop file of the sending
// application, without the ".desktop" suffix.
func HintDesktopEntry(name string) Hint {
	return Hint{ID: HintKeyDesktopEntry, Value: StringValue(name)}
}

// HintImageFilePath sets an image by path or file:// URI. image-data takes
// precedence over it on compliant servers.
func HintImageFilePath(path string) Hint {
	return Hint{ID: HintKeyImagePath, Value: StringValue(path)}
}

func HintImageData(img ImageData) Hint {
	return Hint{ID: HintKeyImageData, Value: ImageValue(img)}
}

// HintImageDataRGBA converts img to the raw image-data format.
func HintImageDataRGBA(img *image.RGBA) Hint {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rowLen := w * 4
	data := make([]byte, 0, rowLen*h)
	for y := 0; y < h; y++ {
		start := y * img.Stride
		data = append(data, img.Pix[start:start+rowLen]...)
	}
	return HintImageData(ImageData{
		Width:         int32(w),
		Height:        int32(h),
		RowStride:     int32(rowLen),
		HasAlpha:      true,
		BitsPerSample: 8,
		Channels:      4,
		Data:          data,
	})
}

// HintSoundWithFile plays the sound file at path when the notification pops up.
func HintSoundWithFile(path string) Hint {
	return Hint{ID: HintKeySoundFile, Value: StringValue(path)}
}

// HintSoundWithName plays a named sound from the freedesktop sound naming spec.
// See: http://0pointer.de/public/sound-naming-spec.html
func HintSoundWithName(name string) Hint {
	return Hint{ID: HintKeySoundName, Value: StringValue(name)}
}

func HintSuppressSound(suppress bool) Hint {
	return Hint{ID: HintKeySuppressSound, Value: BoolValue(suppress)}
}

// HintTransient makes the server bypass persistence for this notification.
func HintTransient(transient bool) Hint {
	return Hint{ID: HintKeyTransient, Value: BoolValue(transient)}
}

// HintActionIcons asks the server to interpret action keys as icon names.
func HintActionIcons(enabled bool) Hint {
	return Hint{ID: HintKeyActionIcons, Value: BoolValue(enabled)}
}

// HintResident keeps the notification around after an action is invoked.
func HintResident(resident bool) Hint {
	return Hint{ID: HintKeyResident, Value: BoolValue(resident)}
}

func HintX(x int32) Hint { return Hint{ID: HintKeyX, Value: Int32Value(x)} }
func HintY(y int32) Hint { return Hint{ID: HintKeyY, Value: Int32Value(y)} }

// HintCustom sets a non-standard hint, e.g. "x-vendor-foo".
// Custom hints are sent with the type given.
func HintCustom(id string, value HintValue) Hint {
	return Hint{ID: id, Value: value}
}

func checkHint(key string, v HintValue) error {
	if !v.IsValid() {
		return &EncodingError{Key: key, Reason: "empty value"}
	}
	if want, ok := hintKinds[key]; ok && v.kind != want {
		return &EncodingError{Key: key, Reason: fmt.Sprintf("want %s, got %s", want, v.kind)}
	}
	if !utf8.ValidString(key) {
		return &EncodingError{Key: key, Reason: "key is not valid UTF-8"}
	}
	if v.kind == KindString && !utf8.ValidString(v.str) {
		return &EncodingError{Key: key, Reason: "value is not valid UTF-8"}
	}
	return nil
}

func sortedKeys(m map[string]HintValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EncodeHints converts hints to the a{sv} dictionary of the Notify call.
// A known hint with the wrong type fails the whole encoding; nothing is dropped.
func EncodeHints(hints map[string]HintValue) (map[string]dbus.Variant, error) {
	out := make(map[string]dbus.Variant, len(hints))
	for _, k := range sortedKeys(hints) {
		v := hints[k]
		if err := checkHint(k, v); err != nil {
			return nil, err
		}
		out[k] = v.Variant()
	}
	return out, nil
}

// DecodeHints converts an a{sv} hints dictionary back to typed values.
func DecodeHints(hints map[string]dbus.Variant) (map[string]HintValue, error) {
	out := make(map[string]HintValue, len(hints))
	for k, variant := range hints {
		v, err := decodeHintValue(k, variant)
		if err != nil {
			return nil, err
		}
		if err := checkHint(k, v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func decodeHintValue(key string, variant dbus.Variant) (HintValue, error) {
	switch val := variant.Value().(type) {
	case bool:
		return BoolValue(val), nil
	case byte:
		return ByteValue(val), nil
	case int32:
		return Int32Value(val), nil
	case uint32:
		return Uint32Value(val), nil
	case string:
		return StringValue(val), nil
	case []byte:
		return BytesValue(val), nil
	case ImageData:
		return ImageValue(val), nil
	case []interface{}:
		// structs inside variants arrive as their fields
		var img ImageData
		err := dbus.Store(val,
			&img.Width, &img.Height, &img.RowStride, &img.HasAlpha,
			&img.BitsPerSample, &img.Channels, &img.Data)
		if err != nil {
			return HintValue{}, &EncodingError{Key: key, Reason: "malformed image data: " + err.Error()}
		}
		return ImageValue(img), nil
	default:
		return HintValue{}, &EncodingError{Key: key, Reason: fmt.Sprintf("unsupported type %s", variant.Signature())}
	}
}
