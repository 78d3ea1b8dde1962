package vulkan

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	"github.com/spaghettifunk/voxel/engine/core"
	"github.com/spaghettifunk/voxel/engine/voxel"
)

// VoxelRenderer draws one chunk's faces as instanced quads. Each instance is
// a packed face word; the vertex shader expands it into six vertices.
type VoxelRenderer struct {
	context   *VulkanContext
	pipeline  *VulkanPipeline
	mesh      *VulkanBuffer
	faceCount uint32

	// generation of the surface the pipeline was built against.
	generation uuid.UUID
}

func NewVoxelRenderer(surface *VulkanSurface, shaders ShaderSet, faces []voxel.Face) (*VoxelRenderer, error) {
	context := surface.Context()
	vr := &VoxelRenderer{
		context:    context.Acquire(),
		faceCount:  uint32(len(faces)),
		generation: surface.Generation(),
	}

	vertex, err := NewShaderModule(context, shaders.Vertex, vk.ShaderStageVertexBit)
	if err != nil {
		vr.Destroy()
		return nil, err
	}
	defer vertex.Destroy(context)

	fragment, err := NewShaderModule(context, shaders.Fragment, vk.ShaderStageFragmentBit)
	if err != nil {
		vr.Destroy()
		return nil, err
	}
	defer fragment.Destroy(context)

	config := NewVoxelPipelineConfig(surface.RenderTarget(), []vk.PipelineShaderStageCreateInfo{
		vertex.ShaderStageCreateInfo,
		fragment.ShaderStageCreateInfo,
	})
	pipeline, err := NewGraphicsPipeline(context, &config)
	if err != nil {
		vr.Destroy()
		return nil, err
	}
	vr.pipeline = pipeline

	if len(faces) > 0 {
		mesh, err := NewHostBuffer(context, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit), facesToBytes(faces))
		if err != nil {
			vr.Destroy()
			return nil, err
		}
		vr.mesh = mesh
	}

	core.LogInfo("Voxel renderer built with %d faces for surface %s.", vr.faceCount, vr.generation)
	return vr, nil
}

// Rebuild destroys the renderer and builds a new one for surface. The
// device must be idle.
func (vr *VoxelRenderer) Rebuild(surface *VulkanSurface, shaders ShaderSet, faces []voxel.Face) (*VoxelRenderer, error) {
	vr.Destroy()
	return NewVoxelRenderer(surface, shaders, faces)
}

// Stale reports whether the pipeline was built for another surface.
func (vr *VoxelRenderer) Stale(surface *VulkanSurface) bool {
	return vr.generation != surface.Generation()
}

func (vr *VoxelRenderer) FaceCount() uint32 {
	return vr.faceCount
}

// Draw records the voxel draw into an open render pass.
func (vr *VoxelRenderer) Draw(cb *VulkanCommandBuffer, transform mgl32.Mat4) {
	if vr.mesh == nil {
		return
	}
	vr.pipeline.Bind(cb, vk.PipelineBindPointGraphics)

	push := EncodeTransform(transform)
	vk.CmdPushConstants(cb.Handle, vr.pipeline.PipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit), 0, PushConstantSize, unsafe.Pointer(&push[0]))

	vk.CmdBindVertexBuffers(cb.Handle, 0, 1, []vk.Buffer{vr.mesh.Handle}, []vk.DeviceSize{0})
	vk.CmdDraw(cb.Handle, 6, vr.faceCount, 0, 0)
}

// Destroy releases the mesh, then the pipeline, then the context reference.
func (vr *VoxelRenderer) Destroy() {
	if vr.context == nil {
		return
	}
	context := vr.context
	if vr.mesh != nil {
		vr.mesh.Destroy(context)
		vr.mesh = nil
	}
	if vr.pipeline != nil {
		vr.pipeline.Destroy(context)
		vr.pipeline = nil
	}
	vr.context = nil
	context.Release()
}

// EncodeTransform lays m out as sixteen little-endian float32 in column-major
// order, the layout of a GLSL mat4 push constant.
func EncodeTransform(m mgl32.Mat4) [PushConstantSize]byte {
	var out [PushConstantSize]byte
	for i, v := range m {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func facesToBytes(faces []voxel.Face) []byte {
	out := make([]byte, 4*len(faces))
	for i, w := range voxel.FacesToWords(faces) {
		binary.LittleEndian.PutUint32(out[i*4:], w)
	}
	return out
}
