package loaders

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/voxel/engine/core"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// ShaderLoader reads compiled SPIR-V blobs.
type ShaderLoader struct {
	binary BinaryLoader
}

// Load returns the SPIR-V words of the blob at path. Every failure is marked
// with core.ErrShaderLoad.
func (sl *ShaderLoader) Load(path string) ([]uint32, error) {
	data, err := sl.binary.Load(path)
	if err != nil {
		return nil, errors.Mark(err, core.ErrShaderLoad)
	}
	code, err := DecodeSPIRV(data)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return code, nil
}

// DecodeSPIRV converts a little-endian SPIR-V blob into words.
func DecodeSPIRV(data []byte) ([]uint32, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(core.ErrShaderLoad, "empty blob")
	}
	if len(data)%4 != 0 {
		return nil, errors.Wrapf(core.ErrShaderLoad, "blob size %d is not a multiple of 4", len(data))
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if code[0] != SPIRVMagic {
		return nil, errors.Wrapf(core.ErrShaderLoad, "bad magic %#08x", code[0])
	}
	return code, nil
}
