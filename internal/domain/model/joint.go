package model

// Side identifies which half of the body a joint or event belongs to.
type Side string

// Side values. SideNone is used for midline joints and for events that
// cannot be attributed to a single side.
const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideNone  Side = "none"
)

// Opposite returns the contralateral side. SideNone maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	default:
		return SideNone
	}
}

// Joint names an anatomical landmark as delivered by the pose provider.
type Joint string

// Joints tracked by the engine. The set mirrors the upstream pose model;
// unknown joints in a frame are ignored rather than rejected.
const (
	JointNose           Joint = "nose"
	JointLeftShoulder   Joint = "left_shoulder"
	JointRightShoulder  Joint = "right_shoulder"
	JointLeftElbow      Joint = "left_elbow"
	JointRightElbow     Joint = "right_elbow"
	JointLeftWrist      Joint = "left_wrist"
	JointRightWrist     Joint = "right_wrist"
	JointLeftHip        Joint = "left_hip"
	JointRightHip       Joint = "right_hip"
	JointLeftKnee       Joint = "left_knee"
	JointRightKnee      Joint = "right_knee"
	JointLeftAnkle      Joint = "left_ankle"
	JointRightAnkle     Joint = "right_ankle"
	JointLeftHeel       Joint = "left_heel"
	JointRightHeel      Joint = "right_heel"
	JointLeftFootIndex  Joint = "left_foot_index"
	JointRightFootIndex Joint = "right_foot_index"
)

// AllJoints lists every joint the buffer keeps history for.
func AllJoints() []Joint {
	return []Joint{
		JointNose,
		JointLeftShoulder, JointRightShoulder,
		JointLeftElbow, JointRightElbow,
		JointLeftWrist, JointRightWrist,
		JointLeftHip, JointRightHip,
		JointLeftKnee, JointRightKnee,
		JointLeftAnkle, JointRightAnkle,
		JointLeftHeel, JointRightHeel,
		JointLeftFootIndex, JointRightFootIndex,
	}
}

// Side reports the body side a joint belongs to.
func (j Joint) Side() Side {
	switch j {
	case JointLeftShoulder, JointLeftElbow, JointLeftWrist, JointLeftHip,
		JointLeftKnee, JointLeftAnkle, JointLeftHeel, JointLeftFootIndex:
		return SideLeft
	case JointRightShoulder, JointRightElbow, JointRightWrist, JointRightHip,
		JointRightKnee, JointRightAnkle, JointRightHeel, JointRightFootIndex:
		return SideRight
	default:
		return SideNone
	}
}

// Wrist returns the wrist joint for a side.
func Wrist(s Side) Joint {
	if s == SideRight {
		return JointRightWrist
	}
	return JointLeftWrist
}

// Ankle returns the ankle joint for a side.
func Ankle(s Side) Joint {
	if s == SideRight {
		return JointRightAnkle
	}
	return JointLeftAnkle
}
