package echov1

import (
	"testing"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

func TestFileDescriptor_Registered(t *testing.T) {
	t.Parallel()

	fd, err := protoregistry.GlobalFiles.FindFileByPath(ProtoFile)
	if err != nil {
		t.Fatalf("FindFileByPath(%q) returned error: %v", ProtoFile, err)
	}
	if fd != FileDescriptor {
		t.Error("registered descriptor differs from FileDescriptor")
	}

	d, err := protoregistry.GlobalFiles.FindDescriptorByName(ServiceName)
	if err != nil {
		t.Fatalf("FindDescriptorByName(%q) returned error: %v", ServiceName, err)
	}
	sd, ok := d.(protoreflect.ServiceDescriptor)
	if !ok {
		t.Fatalf("expected ServiceDescriptor, got %T", d)
	}

	m := sd.Methods().ByName("Echo")
	if m == nil {
		t.Fatal("Echo method not found")
	}
	if got := "/" + string(sd.FullName()) + "/" + string(m.Name()); got != EchoFullMethod {
		t.Errorf("expected full method %q, got %q", EchoFullMethod, got)
	}
	const wrapper = "google.protobuf.StringValue"
	if m.Input().FullName() != wrapper || m.Output().FullName() != wrapper {
		t.Errorf("unexpected types %s -> %s", m.Input().FullName(), m.Output().FullName())
	}
}

func TestServiceDesc_MatchesDescriptor(t *testing.T) {
	t.Parallel()

	if EchoService_ServiceDesc.ServiceName != ServiceName {
		t.Errorf("unexpected service name %q", EchoService_ServiceDesc.ServiceName)
	}
	if EchoService_ServiceDesc.Metadata != ProtoFile {
		t.Errorf("unexpected metadata %v", EchoService_ServiceDesc.Metadata)
	}
}
