package physics

// Commands buffers joint creation and removal requested while systems make
// their decisions for a tick. Apply replays them in request order, so a
// removal queued before an insertion always lands first.
type Commands struct {
	ops []command
}

type command struct {
	insert *Joint
	remove JointID
}

// Insert queues j and returns the id it will be inserted under.
func (c *Commands) Insert(eng Engine, j Joint) JointID {
	j.ID = eng.ReserveJointID()
	c.ops = append(c.ops, command{insert: &j})
	return j.ID
}

func (c *Commands) Remove(id JointID) {
	if id == 0 {
		return
	}
	c.ops = append(c.ops, command{remove: id})
}

func (c *Commands) Len() int { return len(c.ops) }

// Apply executes and clears the queue. Removing a joint that is already gone
// is not an error.
func (c *Commands) Apply(eng Engine) (inserted, removed int) {
	for _, op := range c.ops {
		if op.insert != nil {
			eng.InsertJoint(*op.insert)
			inserted++
			continue
		}
		if eng.RemoveJoint(op.remove) {
			removed++
		}
	}
	c.ops = c.ops[:0]
	return inserted, removed
}
