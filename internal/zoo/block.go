package zoo

import (
	"github.com/born-ml/helloworld/internal/nn"
	"github.com/born-ml/helloworld/internal/tensor"
)

// BasicBlock is the two-convolution residual block of ResNet-18/34:
//
//	out = relu(bn2(conv2(relu(bn1(conv1(x))))) + shortcut(x))
//
// The shortcut is the identity unless the block changes resolution or
// width, in which case it is a strided 1x1 convolution plus batch norm.
type BasicBlock[B tensor.Backend] struct {
	conv1 *nn.Conv2D[B]
	bn1   *nn.BatchNorm2D[B]
	conv2 *nn.Conv2D[B]
	bn2   *nn.BatchNorm2D[B]

	downsample *nn.Sequential[B] // nil for identity shortcuts
}

// NewBasicBlock creates a block mapping inplanes to planes channels.
func NewBasicBlock[B tensor.Backend](inplanes, planes, stride int, backend B) *BasicBlock[B] {
	b := &BasicBlock[B]{
		conv1: nn.NewConv2D(inplanes, planes, 3, stride, 1, false, backend),
		bn1:   nn.NewBatchNorm2D(planes, backend),
		conv2: nn.NewConv2D(planes, planes, 3, 1, 1, false, backend),
		bn2:   nn.NewBatchNorm2D(planes, backend),
	}
	InitConv(b.conv1, backend)
	InitConv(b.conv2, backend)

	if stride != 1 || inplanes != planes {
		proj := nn.NewConv2D(inplanes, planes, 1, stride, 0, false, backend)
		InitConv(proj, backend)
		b.downsample = nn.NewSequential[B](proj, nn.NewBatchNorm2D(planes, backend))
	}
	return b
}

// Forward applies the residual block.
func (b *BasicBlock[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	identity := x
	if b.downsample != nil {
		identity = b.downsample.Forward(x)
	}

	out := b.bn1.Forward(b.conv1.Forward(x)).ReLU()
	out = b.bn2.Forward(b.conv2.Forward(out))
	return out.Add(identity).ReLU()
}

// Parameters returns the block's parameters.
func (b *BasicBlock[B]) Parameters() []*nn.Parameter[B] {
	params := make([]*nn.Parameter[B], 0, 6)
	params = append(params, b.conv1.Parameters()...)
	params = append(params, b.bn1.Parameters()...)
	params = append(params, b.conv2.Parameters()...)
	params = append(params, b.bn2.Parameters()...)
	if b.downsample != nil {
		params = append(params, b.downsample.Parameters()...)
	}
	return params
}

// SetTraining switches the block's batch norms.
func (b *BasicBlock[B]) SetTraining(training bool) {
	b.bn1.SetTraining(training)
	b.bn2.SetTraining(training)
	if b.downsample != nil {
		b.downsample.SetTraining(training)
	}
}
